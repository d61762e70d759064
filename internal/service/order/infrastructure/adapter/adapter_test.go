package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"orderstream/internal/pkg/mq"
	"orderstream/internal/service/order/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

var source = kafka.Message{Topic: "orders", Partition: 1, Offset: 17, Key: []byte("o-1")}

func TestDeadLetterKafkaAdapter_PublishDeadLetter(t *testing.T) {
	w := &recordingWriter{}
	a := NewDeadLetterKafkaAdapter(w)
	order := domain.NewOrder("o-1", "Lamp", -5, 2, "IT-1", time.UnixMilli(1000))
	record := domain.NewDeadLetter(order, "invalid price value: -5", time.UnixMilli(9000))

	ctx := mq.WithMessage(context.Background(), source)
	require.NoError(t, a.PublishDeadLetter(ctx, record))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("o-1"), msg.Key)
	assert.JSONEq(t, `{"orderId":"o-1","productName":"Lamp","price":-5,"quantity":2,"timestamp":1000,
		"errorReason":"invalid price value: -5","failedTimestamp":9000,"origin":"IT-1"}`, string(msg.Value))
	assert.Equal(t, "orders", mq.Header(msg.Headers, mq.HeaderOriginalTopic))
	assert.Equal(t, "17", mq.Header(msg.Headers, mq.HeaderOriginalOffset))
	assert.Equal(t, "invalid price value: -5", mq.Header(msg.Headers, mq.HeaderExceptionMessage))
}

func TestDeadLetterKafkaAdapter_PublishPoison(t *testing.T) {
	w := &recordingWriter{}
	a := NewDeadLetterKafkaAdapter(w)
	poison := source
	poison.Value = []byte("{not json")

	require.NoError(t, a.PublishPoison(context.Background(), poison, errors.New("decode order: bad json")))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("{not json"), w.msgs[0].Value)
	assert.Equal(t, "1", mq.Header(w.msgs[0].Headers, mq.HeaderOriginalPartition))
	assert.Equal(t, "decode order: bad json", mq.Header(w.msgs[0].Headers, mq.HeaderExceptionMessage))
}

func TestDeadLetterKafkaAdapter_WriteFailure(t *testing.T) {
	cause := errors.New("broker down")
	a := NewDeadLetterKafkaAdapter(&recordingWriter{err: cause})

	err := a.PublishDeadLetter(context.Background(), domain.DeadLetter{OrderID: "o-1"})
	assert.ErrorIs(t, err, cause)
}

func TestRetrySchedulerKafkaAdapter(t *testing.T) {
	w := &recordingWriter{}
	a := NewRetrySchedulerKafkaAdapter(w)
	order := domain.NewOrder("o-1", "Lamp", -5, 2, "IT-1", time.UnixMilli(1000))

	ctx := mq.WithMessage(context.Background(), source)
	require.NoError(t, a.ScheduleRetry(ctx, order, 2, domain.ErrSimulatedFailure))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("o-1"), msg.Key)
	assert.Equal(t, "2", mq.Header(msg.Headers, mq.HeaderRetryAttempt))
	assert.Equal(t, domain.ErrSimulatedFailure.Error(), mq.Header(msg.Headers, mq.HeaderExceptionMessage))
	assert.Equal(t, "orders", mq.Header(msg.Headers, mq.HeaderOriginalTopic))

	decoded, err := domain.DecodeOrder(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, order, decoded, "the retried order is the original message")
}

func TestRetrySchedulerKafkaAdapter_SecondRetryKeepsFirstPosition(t *testing.T) {
	w := &recordingWriter{}
	a := NewRetrySchedulerKafkaAdapter(w)
	order := domain.NewOrder("o-1", "Lamp", -5, 2, "IT-1", time.UnixMilli(1000))

	require.NoError(t, a.ScheduleRetry(mq.WithMessage(context.Background(), source), order, 1, domain.ErrSimulatedFailure))
	retried := w.msgs[0]
	retried.Topic, retried.Partition, retried.Offset = "orders-retry", 0, 3

	require.NoError(t, a.ScheduleRetry(mq.WithMessage(context.Background(), retried), order, 2, domain.ErrSimulatedFailure))

	require.Len(t, w.msgs, 2)
	msg := w.msgs[1]
	assert.Equal(t, "orders", mq.Header(msg.Headers, mq.HeaderOriginalTopic))
	assert.Equal(t, "1", mq.Header(msg.Headers, mq.HeaderOriginalPartition))
	assert.Equal(t, "17", mq.Header(msg.Headers, mq.HeaderOriginalOffset))
	assert.Equal(t, "2", mq.Header(msg.Headers, mq.HeaderRetryAttempt))
}

func TestDeadLetterKafkaAdapter_FromRetryTopicKeepsFirstPosition(t *testing.T) {
	w := &recordingWriter{}
	a := NewDeadLetterKafkaAdapter(w)
	retried := kafka.Message{
		Topic:  "orders-retry",
		Offset: 3,
		Headers: []kafka.Header{
			{Key: mq.HeaderOriginalTopic, Value: []byte("orders")},
			{Key: mq.HeaderOriginalPartition, Value: []byte("1")},
			{Key: mq.HeaderOriginalOffset, Value: []byte("17")},
		},
	}
	order := domain.NewOrder("o-1", "Lamp", -5, 2, "IT-1", time.UnixMilli(1000))

	ctx := mq.WithMessage(context.Background(), retried)
	require.NoError(t, a.PublishDeadLetter(ctx, domain.NewDeadLetter(order, "invalid price value: -5", time.UnixMilli(9000))))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "orders", mq.Header(w.msgs[0].Headers, mq.HeaderOriginalTopic))
	assert.Equal(t, "17", mq.Header(w.msgs[0].Headers, mq.HeaderOriginalOffset))
}
