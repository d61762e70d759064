// internal/service/order/interfaces/dlt_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/pkg/mq"
	"orderstream/internal/service/order/domain"
	"orderstream/internal/service/order/domain/port"

	"github.com/segmentio/kafka-go"
)

// DltConsumerAdapter 监听死信队列，记录日志，并在配置了仓储时归档
type DltConsumerAdapter struct {
	reader mq.MessageReader
	repo   port.DeadLetterRepository
	now    func() time.Time
}

// NewDltConsumerAdapter repo 可以为 nil，此时只记录日志
func NewDltConsumerAdapter(reader mq.MessageReader, repo port.DeadLetterRepository) *DltConsumerAdapter {
	return &DltConsumerAdapter{reader: reader, repo: repo, now: time.Now}
}

func (a *DltConsumerAdapter) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("topic", a.reader.Config().Topic).Msg("✅ DLT Consumer Adapter started.")
	for {
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Msg("🛑 DLT Consumer Adapter shutting down.")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("Could not read dead letter, retrying")
			if wait(ctx, fetchErrorBackoff) != nil {
				return nil
			}
			continue
		}

		msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
		logDeadLetter(msgCtx, msg)

		if a.repo != nil {
			if err := a.repo.Save(msgCtx, toArchive(msg, a.now())); err != nil {
				logger.Ctx(msgCtx).Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to archive dead letter")
			}
		}

		// DLT中的消息总是直接提交，因为它们已经被“处理”了（即记录日志）
		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit dead letter")
		}
	}
}

func (a *DltConsumerAdapter) Close() error {
	return a.reader.Close()
}

func logDeadLetter(ctx context.Context, msg kafka.Message) {
	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("original_topic", mq.Header(msg.Headers, mq.HeaderOriginalTopic)).
		Str("original_partition", mq.Header(msg.Headers, mq.HeaderOriginalPartition)).
		Str("original_offset", mq.Header(msg.Headers, mq.HeaderOriginalOffset)).
		Str("exception_fqcn", mq.Header(msg.Headers, mq.HeaderExceptionFqcn)).
		Str("exception_message", mq.Header(msg.Headers, mq.HeaderExceptionMessage)).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("🚨 CRITICAL: Dead letter message received")
}

// toArchive 优先使用消息头，没有时从死信记录本身补齐
func toArchive(msg kafka.Message, now time.Time) *domain.ArchivedDeadLetter {
	record := &domain.ArchivedDeadLetter{
		OrderID:       string(msg.Key),
		ErrorReason:   mq.Header(msg.Headers, mq.HeaderExceptionMessage),
		ExceptionType: mq.Header(msg.Headers, mq.HeaderExceptionFqcn),
		OriginalTopic: mq.Header(msg.Headers, mq.HeaderOriginalTopic),
		Payload:       string(msg.Value),
		ArchivedAt:    now,
	}
	record.OriginalPartition, _ = strconv.Atoi(mq.Header(msg.Headers, mq.HeaderOriginalPartition))
	record.OriginalOffset, _ = strconv.ParseInt(mq.Header(msg.Headers, mq.HeaderOriginalOffset), 10, 64)

	var dl domain.DeadLetter
	if err := json.Unmarshal(msg.Value, &dl); err == nil {
		if record.OrderID == "" {
			record.OrderID = dl.OrderID
		}
		if record.ErrorReason == "" {
			record.ErrorReason = dl.ErrorReason
		}
	}
	return record
}
