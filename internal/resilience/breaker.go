// Package resilience holds the per-dependency guards shared by the request
// pipeline: circuit breakers, timeout guards, and concurrency limiters.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// BreakerState is the circuit breaker lifecycle state.
type BreakerState string

const (
	// StateClosed passes calls through and counts consecutive failures.
	StateClosed BreakerState = "closed"
	// StateOpen rejects calls until the recovery timeout elapses.
	StateOpen BreakerState = "open"
	// StateHalfOpen probes the dependency and counts consecutive successes.
	StateHalfOpen BreakerState = "half_open"
)

var (
	// ErrOpen signals a short-circuited call; the fallback was returned
	// without invoking the dependency.
	ErrOpen = errors.New("resilience: circuit open")
	// ErrDependencyFailed signals a failed or timed-out dependency call;
	// the fallback was returned. The dependency's own error is recorded as
	// a failure signal and never propagated.
	ErrDependencyFailed = errors.New("resilience: dependency failed")
)

// BreakerConfig holds the circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration
}

// CircuitBreaker tracks the health of one named dependency. All state
// transitions are serialized under a single mutex so concurrent callers
// observe a consistent state and never double-trip.
type CircuitBreaker struct {
	mu          sync.Mutex
	name        string
	cfg         BreakerConfig
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time

	now        func() time.Time
	logger     *zap.Logger
	stateGauge *prometheus.GaugeVec
}

// NewBreaker creates a CLOSED breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		now:    time.Now,
		logger: logger,
	}
}

// WithStateGauge attaches a gauge vec with label "dependency"; values are
// 0=closed, 1=open, 2=half_open.
func (b *CircuitBreaker) WithStateGauge(g *prometheus.GaugeVec) *CircuitBreaker {
	b.stateGauge = g
	b.publishState(StateClosed)
	return b
}

// Name returns the dependency name.
func (b *CircuitBreaker) Name() string { return b.name }

// State returns the current state without mutating it.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot reports the breaker's observable state for health endpoints.
type Snapshot struct {
	State       BreakerState `json:"state"`
	Failures    int          `json:"failures"`
	Successes   int          `json:"successes"`
	LastFailure *time.Time   `json:"last_failure,omitempty"`
}

// Snapshot returns the current counters and state. LastFailure is nil
// until the first failure; omitempty does not omit a zero time.Time.
func (b *CircuitBreaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{
		State:     b.state,
		Failures:  b.failures,
		Successes: b.successes,
	}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		s.LastFailure = &t
	}
	return s
}

// allow decides whether a call may proceed, moving OPEN to HALF_OPEN once
// the recovery timeout has elapsed.
func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return true
	}
	if b.now().Sub(b.lastFailure) < b.cfg.RecoveryTimeout {
		return false
	}

	b.transition(StateHalfOpen)
	b.successes = 0
	return true
}

// recordSuccess clears failure history in CLOSED and advances the probe
// count in HALF_OPEN.
func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
			b.failures = 0
			b.successes = 0
		}
	default:
		// Only consecutive failures count toward the threshold.
		b.failures = 0
	}
}

// recordFailure counts a consecutive failure, tripping the breaker at the
// threshold. Any failure while HALF_OPEN reopens immediately.
func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	if b.state == StateHalfOpen {
		b.failures = b.cfg.FailureThreshold
		b.transition(StateOpen)
		return
	}

	b.failures++
	if b.state == StateClosed && b.failures >= b.cfg.FailureThreshold {
		b.transition(StateOpen)
	}
}

// transition must be called with the mutex held.
func (b *CircuitBreaker) transition(next BreakerState) {
	if b.state == next {
		return
	}
	b.logger.Warn("circuit breaker state change",
		zap.String("dependency", b.name),
		zap.String("from", string(b.state)),
		zap.String("to", string(next)),
		zap.Int("failures", b.failures),
	)
	b.state = next
	b.publishState(next)
}

func (b *CircuitBreaker) publishState(s BreakerState) {
	if b.stateGauge == nil {
		return
	}
	var v float64
	switch s {
	case StateOpen:
		v = 1
	case StateHalfOpen:
		v = 2
	}
	b.stateGauge.WithLabelValues(b.name).Set(v)
}

// Execute runs call under the breaker. A rejected call returns the fallback
// with ErrOpen; a failed or panicking call is recorded as a failure and
// returns the fallback with ErrDependencyFailed. A caller-side cancellation
// is neutral: it says nothing about dependency health, so it counts neither
// as failure nor success. The dependency's own error is never propagated.
func Execute[T any](
	ctx context.Context, b *CircuitBreaker, fallback T,
	call func(ctx context.Context) (T, error),
) (T, error) {
	if !b.allow() {
		return fallback, fmt.Errorf("%w: %s", ErrOpen, b.name)
	}

	v, err := safeCall(ctx, call)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fallback, err
		}
		b.recordFailure()
		return fallback, fmt.Errorf("%w: %s", ErrDependencyFailed, b.name)
	}

	b.recordSuccess()
	return v, nil
}

// safeCall converts a panic in the wrapped call into a failure signal.
func safeCall[T any](ctx context.Context, call func(ctx context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dependency panicked: %v", r)
		}
	}()
	return call(ctx)
}
