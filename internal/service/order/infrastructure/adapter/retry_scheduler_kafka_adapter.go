package adapter

import (
	"context"
	"encoding/json"
	"strconv"

	"orderstream/internal/pkg/mq"
	"orderstream/internal/service/order/domain"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// RetrySchedulerKafkaAdapter 实现了 port.RetryScheduler。
// 订单被原样写入重试主题，由带延迟的消费者在 retryDelay 之后重新处理。
type RetrySchedulerKafkaAdapter struct {
	writer mq.MessageWriter
}

func NewRetrySchedulerKafkaAdapter(writer mq.MessageWriter) *RetrySchedulerKafkaAdapter {
	return &RetrySchedulerKafkaAdapter{writer: writer}
}

func (a *RetrySchedulerKafkaAdapter) ScheduleRetry(ctx context.Context, order *domain.Order, attempt int, cause error) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return errors.Wrap(err, "marshal order for retry")
	}

	var headers []kafka.Header
	if msg, ok := mq.MessageFromContext(ctx); ok {
		headers = mq.FailureHeaders(msg, cause)
	} else {
		headers = []kafka.Header{{Key: mq.HeaderExceptionMessage, Value: []byte(cause.Error())}}
	}
	headers = append(headers, kafka.Header{Key: mq.HeaderRetryAttempt, Value: []byte(strconv.Itoa(attempt))})

	if err := mq.ProduceMessage(ctx, a.writer, []byte(order.ID), payload, headers...); err != nil {
		return errors.Wrapf(err, "schedule retry %d for order %s", attempt, order.ID)
	}
	return nil
}

func (a *RetrySchedulerKafkaAdapter) Close() error {
	return a.writer.Close()
}
