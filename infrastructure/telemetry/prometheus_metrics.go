// Package telemetry provides the pipeline's observability plumbing:
// a Prometheus-backed metrics collector, a no-op collector for tests and
// metrics-less runs, and logger construction.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-npp/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks ballot throughput, below-the-line rates, output
// volume, and per-phase latency across scenarios.
type PrometheusMetrics struct {
	ballotsProcessed *prometheus.CounterVec
	btlBallots       *prometheus.CounterVec
	outputRows       *prometheus.CounterVec
	phaseLatency     *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
}

// NewPrometheusMetrics creates a PrometheusMetrics registered against the
// given registerer. Pass prometheus.DefaultRegisterer for normal operation
// or a fresh registry in tests.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		ballotsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npp_ballots_processed_total",
				Help: "Total ballot papers streamed by the distribution phase.",
			},
			[]string{"scenario"},
		),
		btlBallots: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npp_btl_ballots_total",
				Help: "Ballot papers that were formal below the line.",
			},
			[]string{"scenario"},
		),
		outputRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npp_output_rows_total",
				Help: "Data rows written by each phase.",
			},
			[]string{"scenario", "phase"},
		),
		phaseLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "npp_phase_duration_seconds",
				Help:    "Wall-clock execution time of each pipeline phase.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"operation", "scenario"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npp_operations_total",
				Help: "Count of miscellaneous pipeline operations.",
			},
			[]string{"operation", "scenario"},
		),
	}
}

// RecordLatency records a phase's execution time.
func (pm *PrometheusMetrics) RecordLatency(
	operation string, duration time.Duration, labels map[string]string,
) {
	pm.phaseLatency.WithLabelValues(operation, labels["scenario"]).Observe(duration.Seconds())
}

// RecordCounter increments the counter matching the metric name; metrics
// without a dedicated counter fall through to the operations counter.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "npp_ballots_processed_total":
		pm.ballotsProcessed.WithLabelValues(labels["scenario"]).Add(value)
	case "npp_btl_ballots_total":
		pm.btlBallots.WithLabelValues(labels["scenario"]).Add(value)
	case "npp_output_rows_total":
		pm.outputRows.WithLabelValues(labels["scenario"], labels["phase"]).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, labels["scenario"]).Add(value)
	}
}
