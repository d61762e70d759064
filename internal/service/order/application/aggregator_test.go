package application

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregator_UpdateScenario(t *testing.T) {
	a := NewAggregator()

	avg := a.Update(10.0, 2)
	assert.Equal(t, 10.0, avg)

	avg = a.Update(19.99, 3)
	assert.InDelta(t, 14.995, avg, 1e-9)

	s := a.Snapshot()
	assert.EqualValues(t, 2, s.TotalOrders)
	assert.EqualValues(t, 2, s.SuccessfulOrders)
	assert.EqualValues(t, 0, s.FailedOrders)
	assert.Equal(t, 79.97, s.TotalRevenue)
}

func TestAggregator_RevenueIsExact(t *testing.T) {
	a := NewAggregator()
	a.Update(19.99, 3)
	assert.Equal(t, 59.97, a.Snapshot().TotalRevenue)
}

func TestAggregator_RecordFailureOnlyTouchesFailures(t *testing.T) {
	a := NewAggregator()
	a.Update(5, 1)
	a.RecordFailure()
	a.RecordFailure()

	s := a.Snapshot()
	assert.EqualValues(t, 1, s.TotalOrders)
	assert.EqualValues(t, 2, s.FailedOrders)
	assert.Equal(t, 5.0, s.RunningAverage)
}

func TestAggregator_Reset(t *testing.T) {
	a := NewAggregator()
	a.Update(3, 3)
	a.RecordFailure()
	a.Reset()

	s := a.Snapshot()
	assert.Zero(t, s.TotalOrders)
	assert.Zero(t, s.SuccessfulOrders)
	assert.Zero(t, s.FailedOrders)
	assert.Zero(t, s.RunningAverage)
	assert.Zero(t, s.TotalRevenue)

	assert.Equal(t, 7.0, a.Update(7, 1), "average starts over after reset")
}

func TestAggregator_Concurrent(t *testing.T) {
	const workers, perWorker = 8, 1000
	a := NewAggregator()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.Update(2.5, 2)
				if i%10 == 0 {
					a.RecordFailure()
				}
			}
		}()
	}

	// 并发读取的快照必须始终一致
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s := a.Snapshot()
			assert.Equal(t, s.TotalOrders, s.SuccessfulOrders)
		}
	}()

	wg.Wait()
	<-done

	s := a.Snapshot()
	assert.EqualValues(t, workers*perWorker, s.TotalOrders)
	assert.EqualValues(t, workers*perWorker, s.SuccessfulOrders)
	assert.EqualValues(t, workers*perWorker/10, s.FailedOrders)
	assert.Equal(t, 2.5, s.RunningAverage)
	assert.Equal(t, float64(workers*perWorker*5), s.TotalRevenue)
}

func TestAggregator_SnapshotDuringReset(t *testing.T) {
	const writers, rounds, reads = 4, 2000, 20000
	a := NewAggregator()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				a.Update(10, 1)
				a.Reset()
			}
		}()
	}

	// 快照要么是重置前的完整状态，要么是重置后的全零状态
	for i := 0; i < reads; i++ {
		s := a.Snapshot()
		if s.TotalOrders == 0 {
			assert.Zero(t, s.SuccessfulOrders)
			assert.Zero(t, s.RunningAverage)
			assert.Zero(t, s.TotalRevenue)
			continue
		}
		assert.Equal(t, s.TotalOrders, s.SuccessfulOrders)
		assert.Equal(t, 10.0, s.RunningAverage)
		assert.Equal(t, float64(10*s.TotalOrders), s.TotalRevenue)
	}

	wg.Wait()
}
