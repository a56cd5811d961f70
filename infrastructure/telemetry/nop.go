package telemetry

import (
	"time"

	"github.com/ahrav/go-npp/internal/ports"
)

// Compile-time verification that NopMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*NopMetrics)(nil)

// NopMetrics discards every recording. It backs runs without a metrics
// endpoint and keeps tests free of registry state.
type NopMetrics struct{}

// NewNopMetrics returns a collector that discards everything.
func NewNopMetrics() *NopMetrics { return &NopMetrics{} }

// RecordLatency discards the observation.
func (*NopMetrics) RecordLatency(string, time.Duration, map[string]string) {}

// RecordCounter discards the increment.
func (*NopMetrics) RecordCounter(string, float64, map[string]string) {}
