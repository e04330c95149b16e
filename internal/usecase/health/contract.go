package health

import (
	"context"

	"github.com/kailas-cloud/concierge/internal/resilience"
)

// Pinger checks one infrastructure dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GuardReporter exposes the breaker/limiter registry's observable state.
type GuardReporter interface {
	BreakerSnapshots() map[string]resilience.Snapshot
	LimiterAvailability() map[string]int
}

// CacheReporter exposes the tier-1 entry count.
type CacheReporter interface {
	LocalLen() int
}
