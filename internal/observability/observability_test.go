package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNopLoggerDiscards(t *testing.T) {
	logger := NopLogger()
	logger.Debug("debug", "k", "v")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error", "err", errors.New("boom"))
	if OrNop(nil) == nil {
		t.Fatalf("expected OrNop to substitute a logger")
	}
}

func TestSlogLoggerWritesLevels(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlogLogger(slog.New(handler))

	logger.Debug("statement", "endpoint", "sqlite:artists")
	logger.Warn("slow borrow")
	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "endpoint=sqlite:artists") {
		t.Fatalf("expected debug record with attrs, got %q", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Fatalf("expected warn record, got %q", out)
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, OpUnitOfWork, true, 2*time.Millisecond)
	rec.Observe(ctx, OpUnitOfWork, false, 3*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if got := snap.Results[OpUnitOfWork]["success"]; got != 1 {
		t.Fatalf("expected one success, got %d", got)
	}
	if got := snap.Results[OpUnitOfWork]["error"]; got != 1 {
		t.Fatalf("expected one error, got %d", got)
	}
	if got := snap.DurationsMS[OpUnitOfWork]; got != 5 {
		t.Fatalf("expected 5ms total, got %v", got)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
	if v := expvar.Get(rec.Name()); v == nil || !strings.Contains(v.String(), OpUnitOfWork) {
		t.Fatalf("expected expvar export for %s", rec.Name())
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), OpUnitOfWork)
	span.End(errors.New("rolled back"))
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected a single span, got %d", len(entries))
	}
	if entries[0].Status != "error" || entries[0].Error != "rolled back" {
		t.Fatalf("unexpected span %+v", entries[0])
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode span: %v", err)
	}
	if decoded.Operation != OpUnitOfWork {
		t.Fatalf("expected %s, got %s", OpUnitOfWork, decoded.Operation)
	}
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewPrometheusMetrics(reg, "test")
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	ctx := context.Background()
	metrics.Observe(ctx, OpBorrow, true, time.Millisecond)
	metrics.Observe(ctx, OpBorrow, true, time.Millisecond)
	metrics.Observe(ctx, OpBorrow, false, time.Millisecond)
	metrics.SetCachedConnections("sqlite:artists", 3)

	if got := testutil.ToFloat64(metrics.results.WithLabelValues(OpBorrow, "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.cached.WithLabelValues("sqlite:artists")); got != 3 {
		t.Fatalf("expected gauge 3, got %v", got)
	}

	again, err := NewPrometheusMetrics(reg, "test")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	again.Observe(ctx, OpBorrow, false, time.Millisecond)
	if got := testutil.ToFloat64(metrics.results.WithLabelValues(OpBorrow, "error")); got != 2 {
		t.Fatalf("expected shared collectors, got %v errors", got)
	}
}

func TestMultiMetricsForwards(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom, err := NewPrometheusMetrics(reg, "multi")
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	exp := NewExpvarMetricsRecorder("")
	multi := MultiMetrics(nil, prom, exp)
	multi.Observe(context.Background(), OpOpenSource, true, time.Millisecond)
	gauge, ok := multi.(ConnectionGauge)
	if !ok {
		t.Fatalf("expected multi recorder to expose the connection gauge")
	}
	gauge.SetCachedConnections("e", 1)

	if exp.Snapshot().Results[OpOpenSource]["success"] != 1 {
		t.Fatalf("expected expvar observation")
	}
	if got := testutil.ToFloat64(prom.cached.WithLabelValues("e")); got != 1 {
		t.Fatalf("expected gauge forwarded, got %v", got)
	}
	if _, ok := MultiMetrics().(noopMetricsRecorder); !ok {
		t.Fatalf("expected nop recorder for empty input")
	}
}
