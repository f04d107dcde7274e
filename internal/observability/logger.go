// Package observability holds the logging, metrics and tracing hooks shared by
// the connection registry, the unit-of-work executor and the fixture harness.
package observability

import (
	"context"
	"log/slog"
)

// Logger captures the structured logging surface used across rococodb. It
// matches the method set of *slog.Logger so either can be supplied.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that discards every record.
func NopLogger() Logger { return noopLogger{} }

// NewSlogLogger adapts an slog.Logger. A nil logger yields slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debug(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelDebug, msg, args...)
}
func (s slogLogger) Info(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelInfo, msg, args...)
}
func (s slogLogger) Warn(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelWarn, msg, args...)
}
func (s slogLogger) Error(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelError, msg, args...)
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger()
	}
	return l
}
