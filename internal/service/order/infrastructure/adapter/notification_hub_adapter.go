package adapter

import (
	"context"

	"orderstream/internal/pkg/push"
	"orderstream/internal/service/order/domain"
)

// NotificationHubAdapter 实现了 port.NotificationPublisher，把事件推给 websocket 订阅者。
type NotificationHubAdapter struct {
	hub *push.Hub
}

func NewNotificationHubAdapter(hub *push.Hub) *NotificationHubAdapter {
	return &NotificationHubAdapter{hub: hub}
}

func (a *NotificationHubAdapter) PublishOrderEvent(_ context.Context, event any) error {
	return a.hub.Publish(domain.ChannelOrderEvents, event)
}

func (a *NotificationHubAdapter) PublishStatistics(_ context.Context, stats domain.OrderStatistics) error {
	return a.hub.Publish(domain.ChannelStatisticsEvents, stats)
}
