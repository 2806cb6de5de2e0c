package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sourcegraph/conc/pool"
)

// Task is a unit of work run by the scheduler
type Task func(ctx context.Context) error

// Scheduler runs tasks in consecutive batches. The tasks of a batch run
// concurrently and the next batch starts only once all of them returned.
type Scheduler struct {
	BatchSize int
	logger    *slog.Logger
}

// NewScheduler creates a scheduler running at most batchSize tasks at a time
func NewScheduler(batchSize int, logger *slog.Logger) *Scheduler {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Scheduler{
		BatchSize: batchSize,
		logger:    logger,
	}
}

// Batches splits items into consecutive groups of at most size elements
func Batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// RunAll runs every task and returns once all have finished. A failing task
// neither stops its siblings nor later batches; all failures are joined into
// the returned error.
func (s *Scheduler) RunAll(ctx context.Context, tasks []Task) error {
	batches := Batches(tasks, s.BatchSize)
	var errs []error

	for i, batch := range batches {
		s.logger.Info("Starting batch", "batch", i+1, "of", len(batches), "size", len(batch))

		p := pool.New().WithErrors()
		for _, task := range batch {
			p.Go(func() error {
				return task(ctx)
			})
		}

		if err := p.Wait(); err != nil {
			s.logger.Error("Batch finished with failures", "batch", i+1, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
