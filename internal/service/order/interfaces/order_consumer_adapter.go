// internal/service/order/interfaces/order_consumer_adapter.go
package interfaces

import (
	"context"
	"time"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/pkg/metrics"
	"orderstream/internal/pkg/mq"
	"orderstream/internal/service/order/domain"

	"github.com/segmentio/kafka-go"
)

var (
	fetchErrorBackoff = time.Second
	abortBackoff      = time.Second
)

// OrderHandlerService 是消费适配器驱动的应用服务
type OrderHandlerService interface {
	HandleOrder(ctx context.Context, order *domain.Order) domain.State
}

// PoisonSink 接收无法解码的原始消息
type PoisonSink interface {
	PublishPoison(ctx context.Context, msg kafka.Message, cause error) error
}

// OrderConsumerAdapter 是一个驱动适配器，它监听订单主题并驱动消费服务。
// 同一个 reader 上的消息逐条处理，只有在状态允许时才提交 offset。
type OrderConsumerAdapter struct {
	reader mq.MessageReader
	svc    OrderHandlerService
	poison PoisonSink
	delay  time.Duration
}

func NewOrderConsumerAdapter(reader mq.MessageReader, svc OrderHandlerService, poison PoisonSink) *OrderConsumerAdapter {
	return &OrderConsumerAdapter{reader: reader, svc: svc, poison: poison}
}

// SetDelay 让每条消息在 msg.Time + d 之后才被处理，用于重试主题
func (a *OrderConsumerAdapter) SetDelay(d time.Duration) {
	a.delay = d
}

// Run 一直消费到 ctx 结束。被中断的消息不会提交，重启后会重新投递。
func (a *OrderConsumerAdapter) Run(ctx context.Context) error {
	topic := a.reader.Config().Topic
	logger.Ctx(ctx).Info().Str("topic", topic).Dur("delay", a.delay).Msg("✅ Kafka Consumer Adapter started.")

	for {
		// 我们使用FetchMessage而不是ReadMessage，以便手动控制提交
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Str("topic", topic).Msg("🛑 Kafka Consumer Adapter shutting down.")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("Could not read message, retrying")
			if wait(ctx, fetchErrorBackoff) != nil {
				return nil
			}
			continue
		}

		if a.delay > 0 {
			if wait(ctx, time.Until(msg.Time.Add(a.delay))) != nil {
				return nil
			}
		}

		msgCtx := mq.WithMessage(mq.ExtractTraceContext(ctx, msg.Headers), msg)
		if !a.handle(msgCtx, msg) {
			logger.Ctx(ctx).Info().Str("topic", topic).Int64("offset", msg.Offset).Msg("🛑 Message left uncommitted for redelivery.")
			return nil
		}

		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit messages")
		}
	}
}

// handle 返回 true 表示可以提交 offset
func (a *OrderConsumerAdapter) handle(ctx context.Context, msg kafka.Message) bool {
	order, err := domain.DecodeOrder(msg.Value)
	if err != nil {
		if perr := a.poison.PublishPoison(ctx, msg, err); perr != nil {
			metrics.SinkFailures.WithLabelValues(metrics.SinkDeadLetter).Inc()
			logger.Ctx(ctx).Error().Err(perr).Int64("offset", msg.Offset).Msg("Failed to forward poison message")
		}
		return true
	}

	for {
		state := a.svc.HandleOrder(ctx, order)
		if state.ShouldAck() {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		// 重试状态暂时不可用，原地重新处理同一条消息，保持分区内的顺序
		logger.Ctx(ctx).Warn().Str("order_id", order.ID).Str("state", string(state)).Msg("Order handling aborted, retrying message")
		if wait(ctx, abortBackoff) != nil {
			return false
		}
	}
}

func (a *OrderConsumerAdapter) Close() error {
	return a.reader.Close()
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
