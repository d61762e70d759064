// internal/service/order/domain/order.go
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status 是订单在消息中的业务状态，发布后不会再被修改
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Order 是在 orders 主题上流转的订单消息
type Order struct {
	ID          string  `json:"orderId"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Timestamp   int64   `json:"timestamp"` // epoch ms
	Origin      string  `json:"origin"`
	Status      Status  `json:"status"`
}

// NewOrder 创建一个待处理的订单，ID 由调用方生成
func NewOrder(id, productName string, price float64, quantity int, origin string, now time.Time) *Order {
	return &Order{
		ID:          id,
		ProductName: productName,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   now.UnixMilli(),
		Origin:      origin,
		Status:      StatusPending,
	}
}

// DecodeOrder 解析一条订单消息。没有 orderId 的消息被视为无法处理
func DecodeOrder(data []byte) (*Order, error) {
	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if o.ID == "" {
		return nil, errors.New("decode order: missing orderId")
	}
	return &o, nil
}

func (o *Order) CreatedAt() time.Time {
	return time.UnixMilli(o.Timestamp)
}

// Validate 是消费端的业务校验，价格为负的订单永远不会成功
func (o *Order) Validate() error {
	if o.Price < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, o.Price)
	}
	return nil
}
