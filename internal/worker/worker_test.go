package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/pr-snapshot/internal/logging"
)

func TestBatches(t *testing.T) {
	items := make([]int, 45)
	for i := range items {
		items[i] = i
	}

	batches := Batches(items, 20)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 20)
	assert.Len(t, batches[1], 20)
	assert.Len(t, batches[2], 5)
	assert.Equal(t, 0, batches[0][0])
	assert.Equal(t, 20, batches[1][0])
	assert.Equal(t, 44, batches[2][4])
}

func TestBatches_Edges(t *testing.T) {
	assert.Empty(t, Batches([]int{}, 20))
	assert.Len(t, Batches([]int{1, 2, 3}, 0), 3)
	assert.Len(t, Batches([]int{1, 2, 3}, 10), 1)
}

func TestRunAll_BoundsConcurrency(t *testing.T) {
	const total, batchSize = 45, 20
	var running, peak, finished int64

	tasks := make([]Task, total)
	for i := range tasks {
		batch := int64(i / batchSize)
		tasks[i] = func(ctx context.Context) error {
			// every task of earlier batches must have finished before this one starts
			assert.GreaterOrEqual(t, atomic.LoadInt64(&finished), batch*batchSize)

			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			atomic.AddInt64(&finished, 1)
			return nil
		}
	}

	err := NewScheduler(batchSize, logging.Discard()).RunAll(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, int64(total), atomic.LoadInt64(&finished))
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(batchSize))
	assert.Greater(t, atomic.LoadInt64(&peak), int64(1), "tasks within a batch run concurrently")
}

func TestRunAll_CollectsAllErrors(t *testing.T) {
	var mu sync.Mutex
	ran := make(map[int]bool)
	errFirst := errors.New("task 1 failed")
	errLast := errors.New("task 6 failed")

	tasks := make([]Task, 7)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			mu.Lock()
			ran[i] = true
			mu.Unlock()
			switch i {
			case 1:
				return errFirst
			case 6:
				return errLast
			}
			return nil
		}
	}

	err := NewScheduler(3, logging.Discard()).RunAll(context.Background(), tasks)
	require.Error(t, err)

	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errLast)
	assert.Len(t, ran, 7, "a failure must not stop the other tasks")
}

func TestRunAll_NoTasks(t *testing.T) {
	assert.NoError(t, NewScheduler(20, logging.Discard()).RunAll(context.Background(), nil))
}

func ExampleBatches() {
	for _, b := range Batches([]string{"a", "b", "c", "d", "e"}, 2) {
		fmt.Println(b)
	}
	// Output:
	// [a b]
	// [c d]
	// [e]
}
