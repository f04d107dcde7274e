package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"rococodb/internal/observability"
)

// Registry hands out one Source per endpoint. Sources are built on first use,
// at most once even under concurrent first use, and live until Close.
type Registry struct {
	opener        Opener
	creds         CredentialsResolver
	pool          PoolOptions
	logger        observability.Logger
	metrics       observability.MetricsRecorder
	tracer        observability.Tracer
	logStatements bool

	group   singleflight.Group
	mu      sync.RWMutex
	sources map[Endpoint]*Source
	closed  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithPoolOptions sets the bounds applied to every pool.
func WithPoolOptions(opts PoolOptions) Option {
	return func(r *Registry) { r.pool = opts }
}

// WithLogger sets the logger shared by sources, caches and templates.
func WithLogger(l observability.Logger) Option {
	return func(r *Registry) { r.logger = observability.OrNop(l) }
}

// WithMetricsRecorder sets the recorder for borrows, opens and units of work.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithTracer sets the tracer for units of work.
func WithTracer(t observability.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithStatementLogging logs every statement issued through a TxTemplate at
// debug level.
func WithStatementLogging(enabled bool) Option {
	return func(r *Registry) { r.logStatements = enabled }
}

// NewRegistry builds an empty registry. creds may be nil when only endpoints
// that need no credentials are used.
func NewRegistry(opener Opener, creds CredentialsResolver, opts ...Option) *Registry {
	r := &Registry{
		opener:  opener,
		creds:   creds,
		pool:    DefaultPoolOptions(),
		logger:  observability.NopLogger(),
		metrics: observability.NopMetrics(),
		tracer:  observability.NopTracer(),
		sources: make(map[Endpoint]*Source),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.pool = r.pool.withDefaults()
	return r
}

// SourceFor returns the source for endpoint, constructing its pool on first
// use. Construction failures are returned to every waiting caller and are not
// cached.
func (r *Registry) SourceFor(ctx context.Context, endpoint Endpoint) (*Source, error) {
	if src, ok, err := r.cached(endpoint); ok || err != nil {
		return src, err
	}
	v, err, _ := r.group.Do(string(endpoint), func() (any, error) {
		if src, ok, err := r.cached(endpoint); ok || err != nil {
			return src, err
		}
		src, err := r.open(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			_ = src.Close()
			return nil, ErrRegistryClosed
		}
		r.sources[endpoint] = src
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Source), nil
}

func (r *Registry) cached(endpoint Endpoint) (*Source, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, false, ErrRegistryClosed
	}
	src, ok := r.sources[endpoint]
	return src, ok, nil
}

func (r *Registry) open(ctx context.Context, endpoint Endpoint) (src *Source, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe(ctx, observability.OpOpenSource, err == nil, time.Since(started))
	}()
	if endpoint == "" {
		return nil, ConfigurationErrorf("empty endpoint")
	}
	if endpoint.Driver() == DriverUnknown {
		return nil, ConfigurationErrorf("unsupported endpoint scheme in %s", endpoint)
	}
	var creds Credentials
	if r.creds != nil {
		creds = r.creds.Credentials(endpoint)
	}
	db, err := r.opener.Open(ctx, endpoint, creds)
	if err != nil {
		r.logger.Error("open source failed", "endpoint", endpoint.Redacted(), "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(r.pool.MaxOpenConns)
	db.SetMaxIdleConns(r.pool.MaxIdleConns)
	r.logger.Info("source opened",
		"endpoint", endpoint.Redacted(),
		"max_open", r.pool.MaxOpenConns,
		"max_idle", r.pool.MaxIdleConns,
		"borrow_timeout", r.pool.BorrowTimeout,
	)
	return &Source{
		endpoint:      endpoint,
		db:            db,
		cache:         newConnCache(db, endpoint, r.pool.BorrowTimeout, r.logger, r.metrics),
		opener:        r.opener,
		logger:        r.logger,
		metrics:       r.metrics,
		tracer:        r.tracer,
		logStatements: r.logStatements,
	}, nil
}

// Sources lists the sources built so far, ordered by endpoint.
func (r *Registry) Sources() []*Source {
	r.mu.RLock()
	out := make([]*Source, 0, len(r.sources))
	for _, src := range r.sources {
		out = append(out, src)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Source) int { return cmp.Compare(a.endpoint, b.endpoint) })
	return out
}

// CloseWorker releases the connection the worker carried by ctx holds on each
// source. Fixtures call it after every test.
func (r *Registry) CloseWorker(ctx context.Context) error {
	var errs []error
	for _, src := range r.Sources() {
		if err := src.cache.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close worker connection on %s: %w", src.endpoint, err))
		}
	}
	return errors.Join(errs...)
}

// CloseAll releases every cached connection of every source. Pools stay open.
func (r *Registry) CloseAll() error {
	var g errgroup.Group
	for _, src := range r.Sources() {
		g.Go(func() error {
			if err := src.cache.CloseAll(); err != nil {
				return fmt.Errorf("close connections on %s: %w", src.endpoint, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases every connection, closes every pool and rejects further use.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sources := r.sources
	r.sources = make(map[Endpoint]*Source)
	r.mu.Unlock()

	var errs []error
	for endpoint, src := range sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source %s: %w", endpoint, err))
		}
	}
	return errors.Join(errs...)
}
