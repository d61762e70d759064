// internal/service/order/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrice     = errors.New("invalid price value")
	ErrSimulatedFailure = errors.New("temporary failure - simulating retry")
	ErrInvalidOrder     = errors.New("invalid order request")
)

// PublishError 表示订单没有被消息系统确认
type PublishError struct {
	Topic   string
	OrderID string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish order %s to %s: %v", e.OrderID, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
