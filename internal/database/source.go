package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rococodb/internal/observability"
)

// Default pool settings.
const (
	DefaultMaxOpenConns  = 50
	DefaultMaxIdleConns  = 10
	DefaultBorrowTimeout = 5 * time.Second
)

// PoolOptions bound every pool a registry creates.
type PoolOptions struct {
	MaxOpenConns  int
	MaxIdleConns  int
	BorrowTimeout time.Duration
}

// DefaultPoolOptions returns 10 idle, 50 open and a 5s borrow timeout.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxOpenConns:  DefaultMaxOpenConns,
		MaxIdleConns:  DefaultMaxIdleConns,
		BorrowTimeout: DefaultBorrowTimeout,
	}
}

func (o PoolOptions) withDefaults() PoolOptions {
	def := DefaultPoolOptions()
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = def.MaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = def.MaxIdleConns
	}
	if o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.BorrowTimeout <= 0 {
		o.BorrowTimeout = def.BorrowTimeout
	}
	return o
}

// Opener turns an endpoint into a database/sql pool and recognises the
// driver's unique-constraint failures.
type Opener interface {
	Open(ctx context.Context, endpoint Endpoint, creds Credentials) (*sql.DB, error)
	IsUniqueViolation(err error) bool
}

// Source is the pool for one endpoint together with its worker connection cache.
type Source struct {
	endpoint      Endpoint
	db            *sql.DB
	cache         *ConnCache
	opener        Opener
	logger        observability.Logger
	metrics       observability.MetricsRecorder
	tracer        observability.Tracer
	logStatements bool
}

// Endpoint returns the endpoint the source was built for.
func (s *Source) Endpoint() Endpoint { return s.endpoint }

// DB exposes the pool.
func (s *Source) DB() *sql.DB { return s.db }

// Cache returns the worker connection cache of the source.
func (s *Source) Cache() *ConnCache { return s.cache }

// IsUniqueViolation reports whether err is a unique or primary key conflict.
func (s *Source) IsUniqueViolation(err error) bool {
	return err != nil && s.opener.IsUniqueViolation(err)
}

// Classify wraps err with the description. Unique conflicts become
// ErrConstraintViolation; anything else is wrapped as is.
func (s *Source) Classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if s.IsUniqueViolation(err) {
		return ConstraintViolation(err, format, args...)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func (s *Source) queryer(q Queryer) Queryer {
	if !s.logStatements {
		return q
	}
	return statementLogger{next: q, logger: s.logger, endpoint: s.endpoint.Redacted()}
}

// Close releases every cached connection and closes the pool.
func (s *Source) Close() error {
	return errors.Join(s.cache.CloseAll(), s.db.Close())
}
