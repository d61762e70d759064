package adapter

import (
	"context"

	cmap "github.com/orcaman/concurrent-map"
)

// MemoryRetryStore 是进程内的 port.RetryStore，分片 map 让不同订单的更新互不阻塞。
// 只适合单实例部署，重启后计数丢失。
type MemoryRetryStore struct {
	attempts cmap.ConcurrentMap
}

func NewMemoryRetryStore() *MemoryRetryStore {
	return &MemoryRetryStore{attempts: cmap.New()}
}

func (s *MemoryRetryStore) Attempts(_ context.Context, orderID string) (int, error) {
	if v, ok := s.attempts.Get(orderID); ok {
		return v.(int), nil
	}
	return 0, nil
}

func (s *MemoryRetryStore) Increment(_ context.Context, orderID string) (int, error) {
	// Upsert 在分片锁内执行回调，读改写是原子的
	v := s.attempts.Upsert(orderID, 1, func(exist bool, valueInMap interface{}, newValue interface{}) interface{} {
		if !exist {
			return newValue
		}
		return valueInMap.(int) + 1
	})
	return v.(int), nil
}

func (s *MemoryRetryStore) Clear(_ context.Context, orderID string) error {
	s.attempts.Remove(orderID)
	return nil
}

// Len 返回仍在重试中的订单数
func (s *MemoryRetryStore) Len() int {
	return s.attempts.Count()
}
