package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	CacheResultTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "concierge",
			Name:      "cache_result_total",
			Help:      "Query cache hits and misses per tier",
		},
		[]string{"tier", "result"}, // tier: "l1"/"l2", result: "hit"/"miss"
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "concierge",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per dependency (0=closed, 1=open, 2=half_open)",
		},
		[]string{"dependency"},
	)

	BackendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "concierge",
			Name:      "backend_call_duration_seconds",
			Help:      "Guarded backend call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.04, 0.08, 0.15, 0.3, 0.6, 1, 2},
		},
		[]string{"dependency", "outcome"}, // outcome: "ok"/"fallback"
	)

	GeneratorFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "concierge",
			Name:      "generator_fallback_total",
			Help:      "Requests answered with the degraded structured-only path",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheResultTotal)
	prometheus.MustRegister(BreakerState)
	prometheus.MustRegister(BackendCallDuration)
	prometheus.MustRegister(GeneratorFallbackTotal)
	pipelineMetricsRegistered = true
}
