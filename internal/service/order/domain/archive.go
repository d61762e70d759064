// internal/service/order/domain/archive.go
package domain

import "time"

// ArchivedDeadLetter 是死信主题上一条消息的归档记录。
// 无法解码的消息也会归档，此时 OrderID 可能为空，Payload 保留原文。
type ArchivedDeadLetter struct {
	ID                uint
	OrderID           string
	ErrorReason       string
	ExceptionType     string
	OriginalTopic     string
	OriginalPartition int
	OriginalOffset    int64
	Payload           string
	ArchivedAt        time.Time
}
