package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_BoundsConcurrency(t *testing.T) {
	l := NewLimiter("vector", 2)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if got := l.Available(); got != 0 {
		t.Fatalf("expected 0 slots available, got %d", got)
	}

	// Third acquire blocks until a release.
	acquired := make(chan struct{})
	go func() {
		_ = l.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while all slots are held")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("acquire did not proceed after release")
	}
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	l := NewLimiter("generate", 1)
	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Acquire(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := l.Available(); got != 0 {
		t.Fatalf("failed acquire must not consume a slot, available=%d", got)
	}
}

func TestLimiter_DoReleasesOnError(t *testing.T) {
	l := NewLimiter("vector", 1)
	ctx := context.Background()

	want := errors.New("search failed")
	if err := l.Do(ctx, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if got := l.Available(); got != 1 {
		t.Fatalf("slot not released after error, available=%d", got)
	}

	if err := l.Do(ctx, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if got := l.Available(); got != 1 {
		t.Fatalf("slot not released after success, available=%d", got)
	}
}

func TestLimiter_ZeroCapacityClamped(t *testing.T) {
	l := NewLimiter("broken", 0)
	if got := l.Available(); got != 1 {
		t.Fatalf("expected capacity clamped to 1, available=%d", got)
	}
}
