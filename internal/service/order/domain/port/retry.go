package port

import (
	"context"

	"orderstream/internal/service/order/domain"
)

// RetryStore 保存每个订单已经失败的次数。实现必须保证单个 key 上的操作是原子的。
type RetryStore interface {
	// Attempts 返回已记录的失败次数，没有记录时为 0。
	Attempts(ctx context.Context, orderID string) (int, error)

	// Increment 把失败次数加一并返回新值。
	Increment(ctx context.Context, orderID string) (int, error)

	// Clear 删除记录，订单到达终态时调用。
	Clear(ctx context.Context, orderID string) error
}

// RetryScheduler 把一次重试交给延迟主题，而不是在消费协程里等待。
type RetryScheduler interface {
	ScheduleRetry(ctx context.Context, order *domain.Order, attempt int, cause error) error
}

// FaultInjector 在校验之后决定是否模拟一次临时失败。
// 返回非 nil 错误表示本次处理失败，进入重试流程。
type FaultInjector interface {
	Inject(ctx context.Context, order *domain.Order, attempt int) error
}
