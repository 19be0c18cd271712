package downloader

import (
	"context"
	"time"
)

// Backoff is an exponential retry policy. A zero Multiplier keeps the delay
// constant.
type Backoff struct {
	Attempts   int
	Delay      time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	// Retryable decides whether an error is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool

	// OnRetry is called before sleeping, with the 1-based attempt that failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// next returns the delay that follows d.
func (b Backoff) next(d time.Duration) time.Duration {
	if b.Multiplier > 0 {
		d = time.Duration(float64(d) * b.Multiplier)
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The last error is returned. Cancelling ctx aborts the
// wait between attempts.
func Do[T any](ctx context.Context, b Backoff, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	wait := b.Delay
	var err error
	for attempt := 1; ; attempt++ {
		var v T
		if v, err = fn(ctx); err == nil {
			return v, nil
		}
		if attempt >= attempts || (b.Retryable != nil && !b.Retryable(err)) {
			return zero, err
		}

		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		wait = b.next(wait)
	}
}
