package fetchpool

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wikiglossary/pkg/logger"
)

func sumFetch(delay time.Duration, calls *int32) FetchFunc[int] {
	return func(ctx context.Context, ids []int) (int, error) {
		atomic.AddInt32(calls, 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		total := 0
		for _, id := range ids {
			total += id
		}
		return total, nil
	}
}

func TestBatches(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6, 7}

	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, Batches(ids, 3))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7}}, Batches(ids, 50))
	assert.Equal(t, [][]int{ids}, Batches(ids, 0))
	assert.Empty(t, Batches(nil, 50))
}

func TestRunCollectsEveryBatch(t *testing.T) {
	for _, workers := range []int{1, 4} {
		var calls int32
		var indexes []int
		total := 0

		err := Run(context.Background(), workers, Batches([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 3),
			sumFetch(5*time.Millisecond, &calls),
			func(r Result[int]) error {
				indexes = append(indexes, r.Job.Index)
				total += r.Data
				return nil
			}, logger.NewNopLogger())

		require.NoError(t, err)
		assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
		assert.Equal(t, 55, total)
		sort.Ints(indexes)
		assert.Equal(t, []int{0, 1, 2, 3}, indexes)
	}
}

func TestRunSingleWorkerNeverOverlaps(t *testing.T) {
	var inFlight, maxInFlight int32
	fetch := func(ctx context.Context, ids []int) (int, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return len(ids), nil
	}

	err := Run(context.Background(), 1, Batches(make([]int, 20), 2), fetch,
		func(Result[int]) error { return nil }, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestRunStopsOnFirstError(t *testing.T) {
	boom := errors.New("upstream exhausted")
	var mu sync.Mutex
	var collected []int

	fetch := func(ctx context.Context, ids []int) (int, error) {
		if ids[0] == 3 {
			return 0, boom
		}
		return ids[0], nil
	}

	err := Run(context.Background(), 1, Batches([]int{1, 2, 3, 4, 5, 6}, 1), fetch,
		func(r Result[int]) error {
			mu.Lock()
			defer mu.Unlock()
			collected = append(collected, r.Data)
			return nil
		}, logger.NewNopLogger())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch 2")
	require.GreaterOrEqual(t, len(collected), 2)
	assert.Equal(t, []int{1, 2}, collected[:2], "batches before the failure are collected")
	assert.NotContains(t, collected, 3)
}

func TestRunPropagatesCollectError(t *testing.T) {
	disk := errors.New("disk full")
	calls := 0
	err := Run(context.Background(), 2, Batches([]int{1, 2, 3, 4}, 1),
		func(ctx context.Context, ids []int) (int, error) { return ids[0], nil },
		func(r Result[int]) error {
			calls++
			return disk
		}, logger.NewNopLogger())

	assert.ErrorIs(t, err, disk)
	assert.GreaterOrEqual(t, calls, 1)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Run(ctx, 2, Batches(make([]int, 100), 1), sumFetch(10*time.Millisecond, &calls),
		func(Result[int]) error { return nil }, logger.NewNopLogger())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Less(t, atomic.LoadInt32(&calls), int32(100))
}

func TestPoolSubmitAfterCancel(t *testing.T) {
	pool := New(context.Background(), 1, func(ctx context.Context, ids []int) (int, error) {
		return 0, nil
	}, logger.NewNopLogger())

	pool.Cancel()
	// Queue has room for two jobs, so fill it before expecting rejection
	for i := 0; i < 10; i++ {
		if err := pool.Submit(Job{Index: i}); err != nil {
			assert.ErrorIs(t, err, context.Canceled)
			return
		}
	}
	t.Fatal("expected Submit to fail once the pool was cancelled")
}
