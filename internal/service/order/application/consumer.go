// internal/service/order/application/consumer.go
package application

import (
	"context"
	"time"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/pkg/metrics"
	"orderstream/internal/service/order/domain"
	"orderstream/internal/service/order/domain/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// 重试模式，与配置中的取值一致
const (
	RetryModeBlocking  = "blocking"
	RetryModeScheduled = "scheduled"
)

type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	Mode       string
}

// OrderConsumerService 是订单消费端的状态机：校验、重试、死信，并驱动统计和推送。
type OrderConsumerService struct {
	aggregator  *Aggregator
	retries     port.RetryStore
	deadLetters port.DeadLetterPublisher
	notifier    port.NotificationPublisher
	scheduler   port.RetryScheduler
	faults      port.FaultInjector
	policy      RetryPolicy
	tracer      trace.Tracer

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewOrderConsumerService(aggregator *Aggregator, retries port.RetryStore, deadLetters port.DeadLetterPublisher, notifier port.NotificationPublisher, policy RetryPolicy) *OrderConsumerService {
	if policy.Mode == "" {
		policy.Mode = RetryModeBlocking
	}
	return &OrderConsumerService{
		aggregator:  aggregator,
		retries:     retries,
		deadLetters: deadLetters,
		notifier:    notifier,
		policy:      policy,
		tracer:      otel.Tracer("order-consumer"),
		sleep:       sleepCtx,
		now:         time.Now,
	}
}

// SetScheduler 设置 scheduled 模式下使用的重试调度器
func (s *OrderConsumerService) SetScheduler(scheduler port.RetryScheduler) {
	s.scheduler = scheduler
}

func (s *OrderConsumerService) SetFaultInjector(faults port.FaultInjector) {
	s.faults = faults
}

// HandleOrder 处理一条订单消息并返回最终状态。调用方只在 State.ShouldAck() 时提交 offset。
func (s *OrderConsumerService) HandleOrder(ctx context.Context, order *domain.Order) domain.State {
	ctx, span := s.tracer.Start(ctx, "app.HandleOrder", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("order.id", order.ID))

	start := s.now()
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("product", order.ProductName).
		Float64("price", order.Price).
		Int("quantity", order.Quantity).
		Msg("Received order")

	state := s.handle(ctx, order)

	metrics.OrdersProcessed.WithLabelValues(string(state)).Inc()
	metrics.ProcessingDuration.Observe(s.now().Sub(start).Seconds())
	span.SetAttributes(attribute.String("order.outcome", string(state)))
	return state
}

func (s *OrderConsumerService) handle(ctx context.Context, order *domain.Order) domain.State {
	log := logger.Ctx(ctx).With().Str("order_id", order.ID).Logger()
	span := trace.SpanFromContext(ctx)
	span.AddEvent(string(domain.StateReceived))

	for {
		if ctx.Err() != nil {
			return domain.StateAborted
		}

		attempts, err := s.retries.Attempts(ctx, order.ID)
		if err != nil {
			// 读不到重试次数就无法判断是否该进死信，交给重新投递
			log.Error().Err(err).Msg("Failed to read retry state")
			return domain.StateAborted
		}

		span.AddEvent(string(domain.StateValidating), trace.WithAttributes(attribute.Int("attempt", attempts)))
		procErr := s.process(ctx, order, attempts)
		if procErr == nil {
			s.onSuccess(ctx, order, attempts)
			return domain.StateSuccess
		}

		if attempts >= s.policy.MaxRetries {
			log.Error().Err(procErr).Int("attempts", attempts).Msg("Max retries reached, sending to DLQ")
			s.onExhausted(ctx, order, procErr)
			return domain.StateDeadLettered
		}

		next, err := s.retries.Increment(ctx, order.ID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to record retry attempt")
			return domain.StateAborted
		}
		metrics.OrderRetries.Inc()
		log.Warn().Err(procErr).Msgf("Order processing failed | Retry %d/%d", next, s.policy.MaxRetries)

		if s.policy.Mode == RetryModeScheduled && s.scheduler != nil {
			err := s.scheduler.ScheduleRetry(ctx, order, next, procErr)
			if err == nil {
				return domain.StateRescheduled
			}
			metrics.SinkFailures.WithLabelValues(metrics.SinkRetry).Inc()
			log.Error().Err(err).Msg("Failed to schedule retry, waiting in place")
		}

		span.AddEvent(string(domain.StateRetryWait))
		if err := s.sleep(ctx, s.policy.Delay); err != nil {
			log.Warn().Err(err).Msg("Retry wait interrupted")
			return domain.StateAborted
		}
	}
}

// process 是 VALIDATING 阶段：业务校验，然后是可选的故障注入
func (s *OrderConsumerService) process(ctx context.Context, order *domain.Order, attempt int) error {
	if err := order.Validate(); err != nil {
		return err
	}
	if s.faults != nil {
		return s.faults.Inject(ctx, order, attempt)
	}
	return nil
}

func (s *OrderConsumerService) onSuccess(ctx context.Context, order *domain.Order, attempts int) {
	runningAverage := s.aggregator.Update(order.Price, order.Quantity)
	stats := s.aggregator.Snapshot()

	if err := s.notifier.PublishStatistics(ctx, stats); err != nil {
		s.sinkFailed(ctx, metrics.SinkNotification, order.ID, err)
	}
	event := domain.OrderSucceeded{
		OrderID:        order.ID,
		ProductName:    order.ProductName,
		Price:          order.Price,
		Quantity:       order.Quantity,
		Status:         domain.StatusSuccess,
		RunningAverage: runningAverage,
	}
	if err := s.notifier.PublishOrderEvent(ctx, event); err != nil {
		s.sinkFailed(ctx, metrics.SinkNotification, order.ID, err)
	}

	s.clear(ctx, order.ID)

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Int("retries", attempts).
		Msgf("Order processed successfully | Running Average: $%.2f", runningAverage)
}

func (s *OrderConsumerService) onExhausted(ctx context.Context, order *domain.Order, cause error) {
	s.aggregator.RecordFailure()

	reason := cause.Error()
	if err := s.deadLetters.PublishDeadLetter(ctx, domain.NewDeadLetter(order, reason, s.now())); err != nil {
		s.sinkFailed(ctx, metrics.SinkDeadLetter, order.ID, err)
	} else {
		logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("Order sent to DLQ")
	}

	event := domain.OrderFailed{
		OrderID:     order.ID,
		ProductName: order.ProductName,
		Status:      domain.StatusFailed,
		Reason:      reason,
	}
	if err := s.notifier.PublishOrderEvent(ctx, event); err != nil {
		s.sinkFailed(ctx, metrics.SinkNotification, order.ID, err)
	}

	s.clear(ctx, order.ID)
}

func (s *OrderConsumerService) clear(ctx context.Context, orderID string) {
	if err := s.retries.Clear(ctx, orderID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", orderID).Msg("Failed to clear retry state")
	}
}

func (s *OrderConsumerService) sinkFailed(ctx context.Context, sink, orderID string, err error) {
	metrics.SinkFailures.WithLabelValues(sink).Inc()
	logger.Ctx(ctx).Error().Err(err).Str("order_id", orderID).Str("sink", sink).Msg("Best-effort publish failed")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
