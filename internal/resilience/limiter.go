package resilience

import "context"

// Limiter is a named counting semaphore bounding in-flight calls to one
// expensive dependency class. Acquire blocks until a slot is free rather
// than failing.
type Limiter struct {
	name  string
	slots chan struct{}
}

// NewLimiter creates a limiter with capacity slots.
func NewLimiter(name string, capacity int) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &Limiter{
		name:  name,
		slots: make(chan struct{}, capacity),
	}
}

// Name returns the limiter name.
func (l *Limiter) Name() string { return l.name }

// Acquire blocks until a slot is free or the context is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. Must follow a successful Acquire.
func (l *Limiter) Release() {
	<-l.slots
}

// Available reports how many slots are currently free.
func (l *Limiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// Do runs fn under a scoped acquisition: the slot is released even when fn
// errors or panics.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}
