package infrastructure

import (
	"context"
	"encoding/json"

	"orderstream/internal/pkg/mq"
	"orderstream/internal/service/order/domain"

	"github.com/pkg/errors"
)

// OrderKafkaPublisher 实现了 port.OrderPublisher，把订单按 ID 写入 orders 主题。
type OrderKafkaPublisher struct {
	writer mq.MessageWriter
	topic  string
}

func NewOrderKafkaPublisher(writer mq.MessageWriter, topic string) *OrderKafkaPublisher {
	return &OrderKafkaPublisher{writer: writer, topic: topic}
}

func (p *OrderKafkaPublisher) PublishOrder(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return &domain.PublishError{Topic: p.topic, OrderID: order.ID, Err: errors.Wrap(err, "marshal order")}
	}

	// key 为订单 ID，同一订单的消息总是进入同一个分区
	if err := mq.ProduceMessage(ctx, p.writer, []byte(order.ID), payload); err != nil {
		return &domain.PublishError{Topic: p.topic, OrderID: order.ID, Err: errors.Wrap(err, "write message")}
	}
	return nil
}

func (p *OrderKafkaPublisher) Close() error {
	return p.writer.Close()
}
