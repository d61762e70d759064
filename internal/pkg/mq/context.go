package mq

import (
	"context"

	"github.com/segmentio/kafka-go"
)

type messageKey struct{}

// WithMessage 把正在处理的消息放进 context，下游转发时可以带上原始位置。
func WithMessage(ctx context.Context, msg kafka.Message) context.Context {
	return context.WithValue(ctx, messageKey{}, msg)
}

// MessageFromContext 返回 WithMessage 放入的消息。
func MessageFromContext(ctx context.Context) (kafka.Message, bool) {
	msg, ok := ctx.Value(messageKey{}).(kafka.Message)
	return msg, ok
}
