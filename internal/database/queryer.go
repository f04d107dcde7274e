package database

import (
	"context"
	"database/sql"
	"time"

	"rococodb/internal/observability"
)

// Queryer is the statement surface shared by *sql.DB, *sql.Conn and *sql.Tx.
// DAOs only ever see a Queryer, never the transaction that backs it.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Queryer = (*sql.DB)(nil)
	_ Queryer = (*sql.Conn)(nil)
	_ Queryer = (*sql.Tx)(nil)
)

// statementLogger logs every statement with its duration at debug level.
type statementLogger struct {
	next     Queryer
	logger   observability.Logger
	endpoint string
}

func (s statementLogger) log(query string, args []any, started time.Time, err error) {
	attrs := []any{
		"endpoint", s.endpoint,
		"sql", query,
		"args", len(args),
		"duration", time.Since(started),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.Debug("sql statement", attrs...)
}

func (s statementLogger) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	started := time.Now()
	res, err := s.next.ExecContext(ctx, query, args...)
	s.log(query, args, started, err)
	return res, err
}

func (s statementLogger) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	started := time.Now()
	rows, err := s.next.QueryContext(ctx, query, args...)
	s.log(query, args, started, err)
	return rows, err
}

func (s statementLogger) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	started := time.Now()
	row := s.next.QueryRowContext(ctx, query, args...)
	s.log(query, args, started, row.Err())
	return row
}
