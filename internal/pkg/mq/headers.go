package mq

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// 失败消息转发到重试 / 死信主题时携带的消息头
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderExceptionFqcn     = "x-exception-fqcn"
	HeaderExceptionMessage  = "x-exception-message"
	HeaderRetryAttempt      = "x-retry-attempt"
)

// Header 返回指定 key 的消息头，不存在时返回空字符串。
func Header(headers []kafka.Header, key string) string {
	c := KafkaHeaderCarrier(headers)
	return c.Get(key)
}

// PositionHeaders 记录原始消息的位置。
// 重试主题上的消息已经带着最初的位置，原样沿用，不指向重试主题本身。
func PositionHeaders(msg kafka.Message) []kafka.Header {
	if topic := Header(msg.Headers, HeaderOriginalTopic); topic != "" {
		return []kafka.Header{
			{Key: HeaderOriginalTopic, Value: []byte(topic)},
			{Key: HeaderOriginalPartition, Value: []byte(Header(msg.Headers, HeaderOriginalPartition))},
			{Key: HeaderOriginalOffset, Value: []byte(Header(msg.Headers, HeaderOriginalOffset))},
		}
	}
	return []kafka.Header{
		{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
	}
}

// FailureHeaders 记录原始消息的位置和导致失败的错误。
func FailureHeaders(msg kafka.Message, cause error) []kafka.Header {
	headers := PositionHeaders(msg)
	if cause != nil {
		headers = append(headers,
			kafka.Header{Key: HeaderExceptionFqcn, Value: []byte(fmt.Sprintf("%T", errors.Cause(cause)))},
			kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
		)
	}
	return headers
}
