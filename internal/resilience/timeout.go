package resilience

import (
	"context"
	"time"
)

// WithTimeout runs call with its own deadline and returns the fallback if
// the deadline expires first. It never returns an error on expiry other
// than context.DeadlineExceeded, and never panics: expiry degrades the one
// call, not the request. The abandoned call keeps running on its goroutine
// until its context cancellation takes effect; its result is discarded.
func WithTimeout[T any](
	ctx context.Context, budget time.Duration, fallback T,
	call func(ctx context.Context) (T, error),
) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	// Buffered so the abandoned goroutine can complete and exit.
	done := make(chan outcome, 1)

	go func() {
		v, err := call(ctx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case out := <-done:
		return out.v, out.err
	case <-ctx.Done():
		return fallback, ctx.Err()
	}
}
