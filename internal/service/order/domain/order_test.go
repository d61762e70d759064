package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_WireFormat(t *testing.T) {
	now := time.UnixMilli(1714564800123)
	o := NewOrder("id-1", "Lamp", 12.5, 2, "IT-1", now)

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":"id-1","productName":"Lamp","price":12.5,"quantity":2,
		"timestamp":1714564800123,"origin":"IT-1","status":"PENDING"}`, string(data))

	decoded, err := DecodeOrder(data)
	require.NoError(t, err)
	assert.Equal(t, o, decoded)
	assert.True(t, decoded.CreatedAt().Equal(now))
}

func TestDecodeOrder_Rejects(t *testing.T) {
	for _, raw := range []string{`not json`, `{}`, `{"orderId":""}`, `[1,2]`} {
		_, err := DecodeOrder([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestOrder_Validate(t *testing.T) {
	assert.NoError(t, (&Order{Price: 0}).Validate())
	err := (&Order{Price: -0.01}).Validate()
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.Contains(t, err.Error(), "invalid price value")
}

func TestState_ShouldAck(t *testing.T) {
	for _, s := range []State{StateSuccess, StateDeadLettered, StateRescheduled} {
		assert.True(t, s.ShouldAck(), s)
	}
	for _, s := range []State{StateReceived, StateValidating, StateRetryWait, StateAborted} {
		assert.False(t, s.ShouldAck(), s)
	}
}

func TestNewDeadLetter(t *testing.T) {
	o := NewOrder("id-2", "Desk", -5, 1, "IT-1", time.UnixMilli(1000))
	dl := NewDeadLetter(o, "invalid price value: -5", time.UnixMilli(5000))

	assert.Equal(t, DeadLetter{
		OrderID: "id-2", ProductName: "Desk", Price: -5, Quantity: 1,
		Timestamp: 1000, ErrorReason: "invalid price value: -5", FailedTimestamp: 5000, Origin: "IT-1",
	}, dl)
}

func TestOriginAlwaysOnTheWire(t *testing.T) {
	o := NewOrder("id-1", "Lamp", 1, 1, "", time.UnixMilli(1))

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"origin":""`)

	data, err = json.Marshal(NewDeadLetter(o, "boom", time.UnixMilli(2)))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"origin":""`)
}
