package health

import (
	"context"

	"github.com/kailas-cloud/concierge/internal/resilience"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// DetailedReport adds the breaker, limiter, and cache views.
type DetailedReport struct {
	Report
	Breakers       map[string]resilience.Snapshot
	LimiterSlots   map[string]int
	CacheL1Entries int
}

// Service coordinates health checks.
type Service struct {
	redis    Pinger
	postgres Pinger
	guards   GuardReporter
	cache    CacheReporter
}

// New creates a Service. Any pinger may be nil.
func New(redis, postgres Pinger, guards GuardReporter, cache CacheReporter) *Service {
	return &Service{redis: redis, postgres: postgres, guards: guards, cache: cache}
}

// Check runs the basic dependency checks.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	s.ping(ctx, checks, "redis", s.redis)
	s.ping(ctx, checks, "postgres", s.postgres)

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

// CheckDetailed adds circuit breaker states and the tier-1 cache count.
func (s *Service) CheckDetailed(ctx context.Context) DetailedReport {
	report := DetailedReport{Report: s.Check(ctx)}
	if s.guards != nil {
		report.Breakers = s.guards.BreakerSnapshots()
		report.LimiterSlots = s.guards.LimiterAvailability()
	}
	if s.cache != nil {
		report.CacheL1Entries = s.cache.LocalLen()
	}
	return report
}

func (s *Service) ping(ctx context.Context, checks map[string]CheckResult, name string, p Pinger) {
	if p == nil {
		return
	}
	if err := p.Ping(ctx); err != nil {
		checks[name] = CheckError
		return
	}
	checks[name] = CheckOK
}
