// Package worker runs per-item work in fixed-size concurrent batches.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 5

// Config holds batch scheduler configuration.
type Config struct {
	BatchSize int
}

// Scheduler bounds concurrency to one batch at a time, with a barrier
// between batches.
type Scheduler struct {
	batchSize int
	logger    *slog.Logger
}

// BatchProgress is reported once after each batch finishes.
type BatchProgress struct {
	Batch     int // 1-based
	Batches   int
	Completed int // cumulative items finished
	Total     int
	Failed    int // cumulative items that returned an error
}

// Result is the outcome of one item. Results are index-aligned with the
// input regardless of completion order.
type Result[R any] struct {
	Value R
	Err   error
}

// NewScheduler creates a new batch scheduler.
func NewScheduler(cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Scheduler{
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// BatchSize returns the configured batch size.
func (s *Scheduler) BatchSize() int {
	return s.batchSize
}

// Batches returns how many batches n items need.
func (s *Scheduler) Batches(n int) int {
	return (n + s.batchSize - 1) / s.batchSize
}

// Run applies fn to every item. All items of a batch run concurrently and
// the next batch starts only after the whole batch returns. An item's error
// or panic is recorded in its own Result and never cancels siblings. If ctx
// is cancelled between batches the remaining items get ctx.Err().
func Run[T, R any](
	ctx context.Context,
	s *Scheduler,
	items []T,
	fn func(ctx context.Context, index int, item T) (R, error),
	onBatch func(BatchProgress),
) []Result[R] {
	results := make([]Result[R], len(items))
	total := len(items)
	batches := s.Batches(total)
	completed, failed := 0, 0

	for b := 0; b < batches; b++ {
		start := b * s.batchSize
		end := min(start+s.batchSize, total)

		if err := ctx.Err(); err != nil {
			for i := start; i < total; i++ {
				results[i].Err = err
			}
			s.logger.Warn("batch run cancelled", "batch", b+1, "remaining", total-start, "error", err)
			return results
		}

		began := time.Now()
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = runItem(ctx, i, items[i], fn)
				return nil
			})
		}
		_ = g.Wait()

		for i := start; i < end; i++ {
			if results[i].Err != nil {
				failed++
			}
		}
		completed = end

		s.logger.Debug("batch finished",
			"batch", b+1,
			"batches", batches,
			"completed", completed,
			"total", total,
			"duration", time.Since(began),
		)

		if onBatch != nil {
			onBatch(BatchProgress{
				Batch:     b + 1,
				Batches:   batches,
				Completed: completed,
				Total:     total,
				Failed:    failed,
			})
		}
	}

	return results
}

func runItem[T, R any](
	ctx context.Context,
	index int,
	item T,
	fn func(ctx context.Context, index int, item T) (R, error),
) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[R]{Err: fmt.Errorf("item %d panicked: %v", index, r)}
		}
	}()

	v, err := fn(ctx, index, item)
	return Result[R]{Value: v, Err: err}
}
