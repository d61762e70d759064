package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"orderstream/internal/service/order/domain"
)

type mapRetryStore struct {
	mu        sync.Mutex
	attempts  map[string]int
	failReads bool
}

func newMapRetryStore() *mapRetryStore {
	return &mapRetryStore{attempts: map[string]int{}}
}

func (m *mapRetryStore) Attempts(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return 0, errors.New("store down")
	}
	return m.attempts[id], nil
}

func (m *mapRetryStore) Increment(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[id]++
	return m.attempts[id], nil
}

func (m *mapRetryStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, id)
	return nil
}

func (m *mapRetryStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.attempts[id]
	return ok
}

type recordingDLQ struct {
	mu      sync.Mutex
	records []domain.DeadLetter
	err     error
}

func (r *recordingDLQ) PublishDeadLetter(_ context.Context, record domain.DeadLetter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []any
	stats  []domain.OrderStatistics
	err    error
}

func (r *recordingNotifier) PublishOrderEvent(_ context.Context, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) PublishStatistics(_ context.Context, stats domain.OrderStatistics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.stats = append(r.stats, stats)
	return nil
}

type recordingScheduler struct {
	attempts []int
	reasons  []string
	err      error
}

func (r *recordingScheduler) ScheduleRetry(_ context.Context, _ *domain.Order, attempt int, cause error) error {
	if r.err != nil {
		return r.err
	}
	r.attempts = append(r.attempts, attempt)
	r.reasons = append(r.reasons, cause.Error())
	return nil
}

// failOnAttempt 在指定的尝试次数上返回模拟失败
type failOnAttempt int

func (f failOnAttempt) Inject(_ context.Context, _ *domain.Order, attempt int) error {
	if attempt == int(f) {
		return domain.ErrSimulatedFailure
	}
	return nil
}

type publisherFunc func(ctx context.Context, order *domain.Order) error

func (f publisherFunc) PublishOrder(ctx context.Context, order *domain.Order) error {
	return f(ctx, order)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
