package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"rococodb/internal/observability"
)

// ConnCache binds at most one physical connection to each worker for one
// source. Entries are created lazily and removed only by Close or CloseAll.
type ConnCache struct {
	db            *sql.DB
	endpoint      Endpoint
	borrowTimeout time.Duration
	logger        observability.Logger
	metrics       observability.MetricsRecorder

	mu    sync.Mutex
	conns map[WorkerID]*workerConn
}

type workerConn struct {
	conn  *sql.Conn
	tx    *sql.Tx
	level sql.IsolationLevel
	depth int
}

func newConnCache(db *sql.DB, endpoint Endpoint, borrowTimeout time.Duration, logger observability.Logger, metrics observability.MetricsRecorder) *ConnCache {
	return &ConnCache{
		db:            db,
		endpoint:      endpoint,
		borrowTimeout: borrowTimeout,
		logger:        observability.OrNop(logger),
		metrics:       metrics,
		conns:         make(map[WorkerID]*workerConn),
	}
}

// Connection returns the connection bound to the worker carried by ctx,
// borrowing one from the pool on first use. A borrow that waits longer than
// the borrow timeout fails with ErrPoolExhausted.
func (c *ConnCache) Connection(ctx context.Context) (*sql.Conn, error) {
	worker, ok := WorkerFrom(ctx)
	if !ok {
		return nil, ErrNoWorker
	}
	wc, err := c.acquire(ctx, worker)
	if err != nil {
		return nil, err
	}
	return wc.conn, nil
}

func (c *ConnCache) acquire(ctx context.Context, worker WorkerID) (*workerConn, error) {
	c.mu.Lock()
	wc, ok := c.conns[worker]
	c.mu.Unlock()
	if ok {
		return wc, nil
	}

	conn, err := c.borrow(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.conns[worker]; ok {
		c.mu.Unlock()
		_ = conn.Close()
		return existing, nil
	}
	wc = &workerConn{conn: conn}
	c.conns[worker] = wc
	n := len(c.conns)
	c.mu.Unlock()

	c.reportSize(n)
	return wc, nil
}

func (c *ConnCache) borrow(ctx context.Context) (*sql.Conn, error) {
	started := time.Now()
	bctx := ctx
	if c.borrowTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, c.borrowTimeout)
		defer cancel()
	}
	conn, err := c.db.Conn(bctx)
	c.metrics.Observe(ctx, observability.OpBorrow, err == nil, time.Since(started))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			c.logger.Warn("connection borrow timed out", "endpoint", c.endpoint, "timeout", c.borrowTimeout)
			return nil, PoolExhaustedErrorf(err, "borrow from %s after %s", c.endpoint, c.borrowTimeout)
		}
		return nil, fmt.Errorf("borrow connection from %s: %w", c.endpoint, err)
	}
	return conn, nil
}

func (c *ConnCache) lookup(worker WorkerID) (*workerConn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wc, ok := c.conns[worker]
	return wc, ok
}

// bindTx records tx as the worker's open transaction.
func (c *ConnCache) bindTx(wc *workerConn, tx *sql.Tx, level sql.IsolationLevel) {
	c.mu.Lock()
	wc.tx = tx
	wc.level = level
	wc.depth = 1
	c.mu.Unlock()
}

// joinTx returns the open transaction with its isolation level and bumps the
// nesting depth.
func (c *ConnCache) joinTx(wc *workerConn) (*sql.Tx, sql.IsolationLevel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wc.tx == nil {
		return nil, 0, false
	}
	wc.depth++
	return wc.tx, wc.level, true
}

func (c *ConnCache) leaveTx(wc *workerConn) {
	c.mu.Lock()
	wc.depth--
	c.mu.Unlock()
}

func (c *ConnCache) clearTx(wc *workerConn) {
	c.mu.Lock()
	wc.tx = nil
	wc.level = 0
	wc.depth = 0
	c.mu.Unlock()
}

// openTx returns the worker's open transaction, if any.
func (c *ConnCache) openTx(worker WorkerID) (*sql.Tx, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wc, ok := c.conns[worker]
	if !ok || wc.tx == nil {
		return nil, false
	}
	return wc.tx, true
}

// Close releases the connection of the worker carried by ctx and forgets it.
// It is a no-op when the worker holds nothing.
func (c *ConnCache) Close(ctx context.Context) error {
	worker, ok := WorkerFrom(ctx)
	if !ok {
		return nil
	}
	return c.release(worker)
}

func (c *ConnCache) release(worker WorkerID) error {
	c.mu.Lock()
	wc, ok := c.conns[worker]
	if ok {
		delete(c.conns, worker)
	}
	n := len(c.conns)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	c.reportSize(n)
	return closeWorkerConn(wc)
}

// CloseAll releases every cached connection.
func (c *ConnCache) CloseAll() error {
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[WorkerID]*workerConn)
	c.mu.Unlock()

	var errs []error
	for worker, wc := range conns {
		if err := closeWorkerConn(wc); err != nil {
			errs = append(errs, fmt.Errorf("close connection of worker %s: %w", worker, err))
		}
	}
	c.reportSize(0)
	return errors.Join(errs...)
}

// Len reports how many workers currently hold a connection.
func (c *ConnCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

func (c *ConnCache) reportSize(n int) {
	if g, ok := c.metrics.(observability.ConnectionGauge); ok {
		g.SetCachedConnections(c.endpoint.Redacted(), n)
	}
}

func closeWorkerConn(wc *workerConn) error {
	var errs []error
	if wc.tx != nil {
		if err := wc.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("rollback open tx: %w", err))
		}
	}
	if err := wc.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
