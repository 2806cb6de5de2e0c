package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/williampepple1/pr-snapshot/internal/wait"
)

// Retrier runs a job a second time after a fixed delay when the first run fails
type Retrier struct {
	Delay  time.Duration
	logger *slog.Logger
	sleep  wait.SleepFunc
}

// NewRetrier creates a retrier waiting delay between the two attempts
func NewRetrier(delay time.Duration, logger *slog.Logger) *Retrier {
	return &Retrier{
		Delay:  delay,
		logger: logger,
		sleep:  wait.Sleep,
	}
}

// Attempt runs fn and, if it fails, runs it exactly once more after Delay.
// The error of the second run is returned as is.
func (r *Retrier) Attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}

	r.logger.Warn("Job failed, retrying", "error", err, "delay", r.Delay)
	if err := r.sleep(ctx, r.Delay); err != nil {
		return err
	}

	return fn(ctx)
}
