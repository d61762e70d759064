// internal/service/order/domain/event.go
package domain

import "time"

// 推送通道
const (
	ChannelOrderEvents      = "order-events"
	ChannelStatisticsEvents = "statistics-events"
)

// OrderSucceeded 在订单处理成功后推送到 order-events
type OrderSucceeded struct {
	OrderID        string  `json:"orderId"`
	ProductName    string  `json:"productName"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
	Status         Status  `json:"status"`
	RunningAverage float64 `json:"runningAverage"`
}

// OrderFailed 在订单进入死信后推送到 order-events
type OrderFailed struct {
	OrderID     string `json:"orderId"`
	ProductName string `json:"productName"`
	Status      Status `json:"status"`
	Reason      string `json:"reason"`
}

// DeadLetter 是写入死信主题的记录
type DeadLetter struct {
	OrderID         string  `json:"orderId"`
	ProductName     string  `json:"productName"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Timestamp       int64   `json:"timestamp"`
	ErrorReason     string  `json:"errorReason"`
	FailedTimestamp int64   `json:"failedTimestamp"`
	Origin          string  `json:"origin"`
}

func NewDeadLetter(o *Order, reason string, failedAt time.Time) DeadLetter {
	return DeadLetter{
		OrderID:         o.ID,
		ProductName:     o.ProductName,
		Price:           o.Price,
		Quantity:        o.Quantity,
		Timestamp:       o.Timestamp,
		ErrorReason:     reason,
		FailedTimestamp: failedAt.UnixMilli(),
		Origin:          o.Origin,
	}
}
