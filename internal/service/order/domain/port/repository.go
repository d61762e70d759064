package port

import (
	"context"

	"orderstream/internal/service/order/domain"
)

// DeadLetterRepository 归档死信主题上的记录，供排查使用。
type DeadLetterRepository interface {
	Save(ctx context.Context, record *domain.ArchivedDeadLetter) error

	// Recent 按归档时间倒序返回最近的记录。
	Recent(ctx context.Context, limit int) ([]*domain.ArchivedDeadLetter, error)
}
