package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rococodb/internal/observability"
)

// DefaultIsolation is used by units of work that do not request a level.
const DefaultIsolation = sql.LevelReadCommitted

// TxTemplate runs units of work against one source. The zero isolation of a
// template built by NewTxTemplate is DefaultIsolation; modifiers return copies.
type TxTemplate struct {
	source    *Source
	isolation sql.IsolationLevel
	retain    bool
}

// NewTxTemplate returns a template that releases the worker's connection
// after each outermost unit of work.
func NewTxTemplate(source *Source) TxTemplate {
	return TxTemplate{source: source, isolation: DefaultIsolation}
}

// RetainConnection returns a copy that keeps the worker's connection cached
// after a successful unit of work. Failed units of work always release it, as
// do units of work whose context carries no worker.
func (t TxTemplate) RetainConnection() TxTemplate {
	t.retain = true
	return t
}

// WithIsolation returns a copy that begins transactions at level.
func (t TxTemplate) WithIsolation(level sql.IsolationLevel) TxTemplate {
	t.isolation = level
	return t
}

// Source returns the source the template runs against.
func (t TxTemplate) Source() *Source { return t.source }

// Isolation returns the level used by Run and Execute.
func (t TxTemplate) Isolation() sql.IsolationLevel { return t.isolation }

// Retains reports whether successful units of work keep the connection.
func (t TxTemplate) Retains() bool { return t.retain }

// Run executes fn as one unit of work at the template's isolation level.
func (t TxTemplate) Run(ctx context.Context, fn func(ctx context.Context, q Queryer) error) error {
	return t.RunIsolated(ctx, t.isolation, fn)
}

// RunIsolated executes fn as one unit of work at level.
//
// The worker identity carried by ctx (a fresh one when absent) selects the
// cached connection. When that worker already has a transaction open on this
// source, fn joins it and the enclosing unit of work decides the outcome. The
// joined transaction keeps the level it was begun with; a nested call asking
// for another level is logged and runs at the outer one. Otherwise a
// transaction is begun, fn runs with a Queryer bound to it and the transaction
// is committed on success or rolled back on error or panic. A worker minted
// here is never retained, since no caller can close it afterwards.
func (t TxTemplate) RunIsolated(ctx context.Context, level sql.IsolationLevel, fn func(ctx context.Context, q Queryer) error) (err error) {
	ctx, worker, fresh := ensureWorker(ctx)
	cache := t.source.cache

	wc, err := cache.acquire(ctx, worker)
	if err != nil {
		return err
	}
	if tx, outer, joined := cache.joinTx(wc); joined {
		defer cache.leaveTx(wc)
		if level != outer {
			t.source.logger.Warn("nested unit of work keeps outer isolation",
				"endpoint", t.source.endpoint, "requested", level.String(), "isolation", outer.String())
		}
		return fn(ctx, t.source.queryer(tx))
	}

	started := time.Now()
	ctx, span := t.source.tracer.Start(ctx, observability.OpUnitOfWork)
	defer func() {
		span.End(err)
		t.source.metrics.Observe(ctx, observability.OpUnitOfWork, err == nil, time.Since(started))
	}()

	tx, err := wc.conn.BeginTx(context.WithoutCancel(ctx), &sql.TxOptions{Isolation: level})
	if err != nil {
		t.abandon(worker)
		return fmt.Errorf("begin tx on %s: %w", t.source.endpoint, err)
	}
	cache.bindTx(wc, tx, level)

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback()
		cache.clearTx(wc)
		t.abandon(worker)
		if p := recover(); p != nil {
			t.source.logger.Error("unit of work panicked", "endpoint", t.source.endpoint, "panic", p)
			err = fmt.Errorf("unit of work panicked: %v", p)
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.source.logger.Error("rollback failed", "endpoint", t.source.endpoint, "error", rbErr)
			err = &RollbackError{Err: err, RollbackErr: rbErr}
		}
	}()

	if err = fn(ctx, t.source.queryer(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx on %s: %w", t.source.endpoint, err)
	}
	committed = true
	cache.clearTx(wc)
	if !t.retain || fresh {
		if relErr := cache.release(worker); relErr != nil {
			t.source.logger.Warn("release connection failed", "endpoint", t.source.endpoint, "error", relErr)
		}
	}
	return nil
}

func (t TxTemplate) abandon(worker WorkerID) {
	if err := t.source.cache.release(worker); err != nil {
		t.source.logger.Warn("release connection failed", "endpoint", t.source.endpoint, "error", err)
	}
}

// Reader returns a Queryer for read-only paths: the worker's open transaction
// when there is one, its retained connection when cached, else the pool.
func (t TxTemplate) Reader(ctx context.Context) Queryer {
	if worker, ok := WorkerFrom(ctx); ok {
		if tx, ok := t.source.cache.openTx(worker); ok {
			return t.source.queryer(tx)
		}
		if wc, ok := t.source.cache.lookup(worker); ok {
			return t.source.queryer(wc.conn)
		}
	}
	return t.source.queryer(t.source.db)
}

// Execute runs fn as one unit of work on tpl and returns its result.
func Execute[T any](ctx context.Context, tpl TxTemplate, fn func(ctx context.Context, q Queryer) (T, error)) (T, error) {
	return ExecuteIsolated(ctx, tpl, tpl.isolation, fn)
}

// ExecuteIsolated is Execute at an explicit isolation level.
func ExecuteIsolated[T any](ctx context.Context, tpl TxTemplate, level sql.IsolationLevel, fn func(ctx context.Context, q Queryer) (T, error)) (T, error) {
	var out T
	err := tpl.RunIsolated(ctx, level, func(ctx context.Context, q Queryer) error {
		var err error
		out, err = fn(ctx, q)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
