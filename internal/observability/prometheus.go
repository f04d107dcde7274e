package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConnectionGauge is implemented by recorders that track how many worker
// connections each endpoint currently caches.
type ConnectionGauge interface {
	SetCachedConnections(endpoint string, n int)
}

// PrometheusMetrics exports operation outcomes, latencies and cached
// connection counts as Prometheus collectors.
type PrometheusMetrics struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
	cached    *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the collectors on reg under namespace
// (default "rococodb"). Collectors already registered by an earlier call are
// reused.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "rococodb"
	}
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of database layer operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Database layer operations by outcome.",
	}, []string{"operation", "status"})
	cached := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cached_connections",
		Help:      "Worker-bound connections currently cached per endpoint.",
	}, []string{"endpoint"})

	var err error
	if durations, err = register(reg, durations); err != nil {
		return nil, err
	}
	if results, err = register(reg, results); err != nil {
		return nil, err
	}
	if cached, err = register(reg, cached); err != nil {
		return nil, err
	}
	return &PrometheusMetrics{durations: durations, results: results, cached: cached}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// Observe implements MetricsRecorder.
func (p *PrometheusMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	p.durations.WithLabelValues(operation).Observe(duration.Seconds())
	p.results.WithLabelValues(operation, statusLabel(success)).Inc()
}

// SetCachedConnections implements ConnectionGauge.
func (p *PrometheusMetrics) SetCachedConnections(endpoint string, n int) {
	p.cached.WithLabelValues(endpoint).Set(float64(n))
}
