// internal/service/order/application/producer.go
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/pkg/metrics"
	"orderstream/internal/service/order/domain"
	"orderstream/internal/service/order/domain/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OrderProducerService 负责创建订单并把它交给消息系统，不做任何统计。
type OrderProducerService struct {
	publisher port.OrderPublisher
	origin    string
	tracer    trace.Tracer

	newID func() string
	now   func() time.Time
}

func NewOrderProducerService(publisher port.OrderPublisher, origin string) *OrderProducerService {
	return &OrderProducerService{
		publisher: publisher,
		origin:    origin,
		tracer:    otel.Tracer("order-producer"),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// SendOrder 发布一个新订单，只有消息被确认后才返回订单 ID。
// 负价格不在这里拦截，它要走消费端的重试和死信流程。
func (s *OrderProducerService) SendOrder(ctx context.Context, productName string, price float64, quantity int) (string, error) {
	ctx, span := s.tracer.Start(ctx, "app.SendOrder", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	if strings.TrimSpace(productName) == "" {
		return "", fmt.Errorf("%w: productName is required", domain.ErrInvalidOrder)
	}
	if quantity <= 0 {
		return "", fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrInvalidOrder, quantity)
	}

	order := domain.NewOrder(s.newID(), productName, price, quantity, s.origin, s.now())
	span.SetAttributes(attribute.String("order.id", order.ID))

	if err := s.publisher.PublishOrder(ctx, order); err != nil {
		metrics.OrdersPublished.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")

		var pe *domain.PublishError
		if !errors.As(err, &pe) {
			pe = &domain.PublishError{OrderID: order.ID, Err: err}
		}
		logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("Failed to send order")
		return "", pe
	}

	metrics.OrdersPublished.WithLabelValues("ok").Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("product", order.ProductName).
		Float64("price", order.Price).
		Int("quantity", order.Quantity).
		Msg("Order sent")
	return order.ID, nil
}
