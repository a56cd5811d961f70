// Package ports defines the interfaces between the pipeline phases and the
// infrastructure that hosts them.
package ports

import (
	"context"
	"time"
)

// Phase is one stage of the n-party-preferred pipeline: distribution,
// projection, or combination. A phase makes a single linear pass over its
// primary input and either emits a complete output file or returns an
// error without emitting one; there is no partial-success mode.
type Phase interface {
	// Name returns the phase's identifier, used for logging, tracing and
	// metric labels.
	Name() string

	// Execute runs the phase to completion. The context is consulted
	// between records; cancellation aborts the run. Execute must not be
	// called concurrently on the same instance — each phase owns mutable
	// tally state for the duration of a run.
	Execute(ctx context.Context) error
}

// MetricsCollector receives operational metrics from the pipeline.
// Implementations must be safe for concurrent use: independent scenarios
// may run in parallel and report through a shared collector.
type MetricsCollector interface {
	// RecordLatency records the wall-clock duration of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a named counter by value.
	RecordCounter(metric string, value float64, labels map[string]string)
}
