// internal/service/order/domain/statistics.go
package domain

// OrderStatistics 是聚合统计的一份快照
type OrderStatistics struct {
	TotalOrders      int64   `json:"totalOrders"`
	RunningAverage   float64 `json:"runningAverage"`
	TotalRevenue     float64 `json:"totalRevenue"`
	SuccessfulOrders int64   `json:"successfulOrders"`
	FailedOrders     int64   `json:"failedOrders"`
}
