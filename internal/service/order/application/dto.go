// internal/service/order/application/dto.go
package application

import "orderstream/internal/service/order/domain"

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// CreateOrderResponse 是创建订单用例的输出数据
type CreateOrderResponse struct {
	OrderID string        `json:"orderId"`
	Status  domain.Status `json:"status"`
	Message string        `json:"message"`
}

// DeadLetterView 是归档死信对外展示的形式
type DeadLetterView struct {
	OrderID           string `json:"orderId,omitempty"`
	ErrorReason       string `json:"errorReason"`
	ExceptionType     string `json:"exceptionType,omitempty"`
	OriginalTopic     string `json:"originalTopic,omitempty"`
	OriginalPartition int    `json:"originalPartition"`
	OriginalOffset    int64  `json:"originalOffset"`
	Payload           string `json:"payload"`
	ArchivedAt        int64  `json:"archivedAt"`
}

func ToDeadLetterView(r *domain.ArchivedDeadLetter) DeadLetterView {
	return DeadLetterView{
		OrderID:           r.OrderID,
		ErrorReason:       r.ErrorReason,
		ExceptionType:     r.ExceptionType,
		OriginalTopic:     r.OriginalTopic,
		OriginalPartition: r.OriginalPartition,
		OriginalOffset:    r.OriginalOffset,
		Payload:           r.Payload,
		ArchivedAt:        r.ArchivedAt.UnixMilli(),
	}
}
