package port

import (
	"context"

	"orderstream/internal/service/order/domain"
)

// OrderPublisher 是订单主题的出站端口。
type OrderPublisher interface {
	// PublishOrder 以订单 ID 为 key 发布订单，只有在消息系统确认后才返回 nil。
	PublishOrder(ctx context.Context, order *domain.Order) error
}

// DeadLetterPublisher 是死信主题的出站端口，尽力而为。
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, record domain.DeadLetter) error
}

// NotificationPublisher 把订单和统计事件推送给订阅者，尽力而为。
type NotificationPublisher interface {
	PublishOrderEvent(ctx context.Context, event any) error
	PublishStatistics(ctx context.Context, stats domain.OrderStatistics) error
}
