package resilience

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Dependency names used across the pipeline.
const (
	DepStructured = "structured"
	DepReview     = "review"
	DepPhoto      = "photo"
	DepGenerator  = "generator"
)

// Limiter names for the two expensive dependency classes.
const (
	LimiterVector   = "vector"
	LimiterGenerate = "generate"
)

// RegistryConfig holds per-dependency breaker settings and limiter capacities.
type RegistryConfig struct {
	Breakers map[string]BreakerConfig
	Limiters map[string]int
}

// Registry holds the process-wide breakers and limiters. It is built once
// at startup and passed into the pipeline, so tests get isolated instances.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	limiters map[string]*Limiter
}

// NewRegistry builds breakers and limiters from config. stateGauge may be
// nil (tests).
func NewRegistry(cfg RegistryConfig, stateGauge *prometheus.GaugeVec, logger *zap.Logger) *Registry {
	r := &Registry{
		breakers: make(map[string]*CircuitBreaker, len(cfg.Breakers)),
		limiters: make(map[string]*Limiter, len(cfg.Limiters)),
	}
	for name, bc := range cfg.Breakers {
		b := NewBreaker(name, bc, logger)
		if stateGauge != nil {
			b.WithStateGauge(stateGauge)
		}
		r.breakers[name] = b
	}
	for name, capacity := range cfg.Limiters {
		r.limiters[name] = NewLimiter(name, capacity)
	}
	return r
}

// Breaker returns the breaker for a dependency, creating a default one if
// the config omitted it.
func (r *Registry) Breaker(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, BreakerConfig{}, zap.NewNop())
	r.breakers[name] = b
	return b
}

// Limiter returns the limiter for a dependency class, creating a
// single-slot one if the config omitted it.
func (r *Registry) Limiter(name string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	l := NewLimiter(name, 1)
	r.limiters[name] = l
	return l
}

// BreakerSnapshots reports every breaker's state for health endpoints.
func (r *Registry) BreakerSnapshots() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Snapshot, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Snapshot()
	}
	return out
}

// LimiterAvailability reports free slots per limiter.
func (r *Registry) LimiterAvailability() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.limiters))
	for name, l := range r.limiters {
		out[name] = l.Available()
	}
	return out
}
