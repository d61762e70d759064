// internal/service/order/application/aggregator.go
package application

import (
	"sync"

	"orderstream/internal/service/order/domain"

	"github.com/shopspring/decimal"
)

// Aggregator 维护进程内的运行统计。所有字段在同一把锁下一起更新，
// 快照永远满足 totalOrders == successfulOrders。
// 金额用 decimal 累加，避免浮点误差在总收入里越积越大。
type Aggregator struct {
	mu sync.Mutex

	totalOrders      int64
	successfulOrders int64
	failedOrders     int64
	priceSum         decimal.Decimal
	totalRevenue     decimal.Decimal
	runningAverage   float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Update 记录一个成功的订单，返回更新后的平均单价
func (a *Aggregator) Update(price float64, quantity int) float64 {
	p := decimal.NewFromFloat(price)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalOrders++
	a.successfulOrders++
	a.priceSum = a.priceSum.Add(p)
	a.totalRevenue = a.totalRevenue.Add(p.Mul(decimal.NewFromInt(int64(quantity))))
	a.runningAverage = a.priceSum.Div(decimal.NewFromInt(a.totalOrders)).InexactFloat64()
	return a.runningAverage
}

func (a *Aggregator) RecordFailure() {
	a.mu.Lock()
	a.failedOrders++
	a.mu.Unlock()
}

func (a *Aggregator) Snapshot() domain.OrderStatistics {
	a.mu.Lock()
	defer a.mu.Unlock()

	return domain.OrderStatistics{
		TotalOrders:      a.totalOrders,
		RunningAverage:   a.runningAverage,
		TotalRevenue:     a.totalRevenue.InexactFloat64(),
		SuccessfulOrders: a.successfulOrders,
		FailedOrders:     a.failedOrders,
	}
}

func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalOrders = 0
	a.successfulOrders = 0
	a.failedOrders = 0
	a.priceSum = decimal.Zero
	a.totalRevenue = decimal.Zero
	a.runningAverage = 0
}
