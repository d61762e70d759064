package adapter

import (
	"context"
	"encoding/json"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/pkg/mq"
	"orderstream/internal/service/order/domain"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// DeadLetterKafkaAdapter 实现了 port.DeadLetterPublisher，写入死信主题。
type DeadLetterKafkaAdapter struct {
	writer mq.MessageWriter
}

func NewDeadLetterKafkaAdapter(writer mq.MessageWriter) *DeadLetterKafkaAdapter {
	return &DeadLetterKafkaAdapter{writer: writer}
}

// PublishDeadLetter 写入一条死信记录。如果 context 中带着原始消息，会附上它的位置。
func (a *DeadLetterKafkaAdapter) PublishDeadLetter(ctx context.Context, record domain.DeadLetter) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal dead letter")
	}

	var headers []kafka.Header
	if msg, ok := mq.MessageFromContext(ctx); ok {
		headers = mq.PositionHeaders(msg)
	}
	headers = append(headers, kafka.Header{Key: mq.HeaderExceptionMessage, Value: []byte(record.ErrorReason)})

	if err := mq.ProduceMessage(ctx, a.writer, []byte(record.OrderID), payload, headers...); err != nil {
		return errors.Wrapf(err, "publish dead letter for order %s", record.OrderID)
	}
	return nil
}

// PublishPoison 把无法解码的消息原样转入死信主题
func (a *DeadLetterKafkaAdapter) PublishPoison(ctx context.Context, msg kafka.Message, cause error) error {
	headers := mq.FailureHeaders(msg, cause)
	if err := mq.ProduceMessage(ctx, a.writer, msg.Key, msg.Value, headers...); err != nil {
		return errors.Wrapf(err, "forward poison message %s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	logger.Ctx(ctx).Warn().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Err(cause).
		Msg("Poison message forwarded to DLQ")
	return nil
}

func (a *DeadLetterKafkaAdapter) Close() error {
	return a.writer.Close()
}
