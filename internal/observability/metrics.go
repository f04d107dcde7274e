package observability

import (
	"context"
	"time"
)

// Operation names reported by the database layer.
const (
	OpUnitOfWork = "unit_of_work"
	OpBorrow     = "borrow_connection"
	OpOpenSource = "open_source"
)

// MetricsRecorder receives one observation per completed operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around units of work.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed exactly once with the operation outcome.
type TraceSpan interface {
	End(err error)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// NopMetrics returns a recorder that drops observations.
func NopMetrics() MetricsRecorder { return noopMetricsRecorder{} }

// NopTracer returns a tracer whose spans record nothing.
func NopTracer() Tracer { return noopTracer{} }

// MultiMetrics fans observations out to every non-nil recorder.
func MultiMetrics(recorders ...MetricsRecorder) MetricsRecorder {
	var out multiMetrics
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return NopMetrics()
	}
	return out
}

type multiMetrics []MetricsRecorder

func (m multiMetrics) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, duration)
	}
}

// SetCachedConnections forwards to every recorder that tracks connection counts.
func (m multiMetrics) SetCachedConnections(endpoint string, n int) {
	for _, r := range m {
		if g, ok := r.(ConnectionGauge); ok {
			g.SetCachedConnections(endpoint, n)
		}
	}
}
