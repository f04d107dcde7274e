package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	jujuerrors "github.com/juju/errors"

	"rococodb/internal/observability"
)

var errBoom = errors.New("boom")

func TestRunCommitsAndReleases(t *testing.T) {
	_, src := newTestSource(t)
	tpl := NewTxTemplate(src)
	ctx := WithWorker(context.Background(), "w")

	if err := tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
		return insertArtist(ctx, q, "1", "Claude Monet")
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := countArtists(t, src.DB()); got != 1 {
		t.Fatalf("expected committed row, got %d", got)
	}
	if src.Cache().Len() != 0 {
		t.Fatalf("expected connection released after commit")
	}
	if tpl.Isolation() != sql.LevelReadCommitted {
		t.Fatalf("expected read committed default, got %v", tpl.Isolation())
	}
}

func TestRunRetainsConnection(t *testing.T) {
	_, src := newTestSource(t)
	tpl := NewTxTemplate(src).RetainConnection()
	if NewTxTemplate(src).Retains() {
		t.Fatalf("modifiers must not mutate the original template")
	}
	ctx := WithWorker(context.Background(), "w")

	if err := tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
		return insertArtist(ctx, q, "1", "Claude Monet")
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if src.Cache().Len() != 1 {
		t.Fatalf("expected retained connection")
	}
	held, _ := src.Cache().lookup("w")
	conn, err := src.Cache().Connection(ctx)
	if err != nil {
		t.Fatalf("connection: %v", err)
	}
	if conn != held.conn {
		t.Fatalf("retained connection must be reused by the same worker")
	}
	if _, ok := src.Cache().openTx("w"); ok {
		t.Fatalf("transaction state must be cleared after commit")
	}
}

func TestRetainedRunWithoutWorkerReleases(t *testing.T) {
	_, src := newTestSource(t, WithPoolOptions(PoolOptions{MaxOpenConns: 2, BorrowTimeout: 200 * time.Millisecond}))
	tpl := NewTxTemplate(src).RetainConnection()

	for i := range 3 {
		if err := tpl.Run(context.Background(), func(ctx context.Context, q Queryer) error {
			if _, ok := WorkerFrom(ctx); !ok {
				return errors.New("no worker bound")
			}
			return nil
		}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if n := src.Cache().Len(); n != 0 {
			t.Fatalf("run %d: connection of an unnamed worker must not stay cached, got %d", i, n)
		}
	}
}

func TestRunRollsBackOnError(t *testing.T) {
	_, src := newTestSource(t)
	tpl := NewTxTemplate(src).RetainConnection()
	ctx := WithWorker(context.Background(), "w")

	err := tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
		if err := insertArtist(ctx, q, "1", "Claude Monet"); err != nil {
			return err
		}
		if err := insertArtist(ctx, q, "2", "Edgar Degas"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if got := countArtists(t, src.DB()); got != 0 {
		t.Fatalf("expected rollback, found %d rows", got)
	}
	if src.Cache().Len() != 0 {
		t.Fatalf("failed unit of work must release even a retained connection")
	}
}

func TestRunRollsBackOnPanic(t *testing.T) {
	_, src := newTestSource(t)
	tpl := NewTxTemplate(src)
	tracer := observability.NewJSONTracer(nil)
	src.tracer = tracer
	ctx := WithWorker(context.Background(), "w")

	func() {
		defer func() {
			if r := recover(); r != "kaboom" {
				t.Fatalf("expected panic to propagate, got %v", r)
			}
		}()
		_ = tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
			if err := insertArtist(ctx, q, "1", "Claude Monet"); err != nil {
				return err
			}
			panic("kaboom")
		})
	}()
	if got := countArtists(t, src.DB()); got != 0 {
		t.Fatalf("expected rollback after panic, found %d rows", got)
	}
	if src.Cache().Len() != 0 {
		t.Fatalf("expected connection released after panic")
	}
	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Status != "error" {
		t.Fatalf("expected failed span, got %+v", entries)
	}
}

func TestNestedRunJoinsOuterTransaction(t *testing.T) {
	_, src := newTestSource(t)
	tpl := NewTxTemplate(src)
	ctx := WithWorker(context.Background(), "w")

	err := tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
		if err := insertArtist(ctx, q, "1", "Claude Monet"); err != nil {
			return err
		}
		if err := tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
			return insertArtist(ctx, q, "2", "Edgar Degas")
		}); err != nil {
			return err
		}
		if src.Cache().Len() != 1 {
			t.Errorf("nested unit of work must not release the connection")
		}
		if got := countArtists(t, tpl.Reader(ctx)); got != 2 {
			t.Errorf("expected both rows visible inside the transaction, got %d", got)
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if got := countArtists(t, src.DB()); got != 0 {
		t.Fatalf("nested writes must roll back with the outer unit of work, found %d", got)
	}
}

func TestNestedRunKeepsOuterIsolation(t *testing.T) {
	logger := &captureLogger{}
	_, src := newTestSource(t, WithLogger(logger))
	tpl := NewTxTemplate(src)
	ctx := WithWorker(context.Background(), "w")
	const warning = "nested unit of work keeps outer isolation"

	err := tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
		if err := tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
			return insertArtist(ctx, q, "1", "Claude Monet")
		}); err != nil {
			return err
		}
		if logger.count(warning) != 0 {
			t.Errorf("same isolation must join silently")
		}
		return tpl.RunIsolated(ctx, sql.LevelSerializable, func(ctx context.Context, q Queryer) error {
			return insertArtist(ctx, q, "2", "Edgar Degas")
		})
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if logger.count(warning) != 1 {
		t.Fatalf("expected one isolation warning, got %d", logger.count(warning))
	}
	if got := countArtists(t, src.DB()); got != 2 {
		t.Fatalf("nested writes must commit with the outer unit of work, got %d", got)
	}
}

func TestExecuteAssignsWorker(t *testing.T) {
	_, src := newTestSource(t)
	tpl := NewTxTemplate(src)

	worker, err := Execute(context.Background(), tpl, func(ctx context.Context, q Queryer) (WorkerID, error) {
		id, ok := WorkerFrom(ctx)
		if !ok {
			return "", errors.New("no worker")
		}
		return id, insertArtist(ctx, q, "1", "Claude Monet")
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if worker == "" {
		t.Fatalf("expected generated worker id")
	}
	if src.Cache().Len() != 0 {
		t.Fatalf("expected connection released")
	}

	n, err := ExecuteIsolated(context.Background(), tpl, sql.LevelSerializable, func(ctx context.Context, q Queryer) (int, error) {
		return 0, errBoom
	})
	if !errors.Is(err, errBoom) || n != 0 {
		t.Fatalf("expected zero value and error, got %d %v", n, err)
	}
}

func TestUncommittedWritesInvisibleToOtherWorkers(t *testing.T) {
	_, src := newTestSource(t)
	tpl := NewTxTemplate(src)
	inserted := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		ctx := WithWorker(context.Background(), "writer")
		done <- tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
			if err := insertArtist(ctx, q, "1", "Claude Monet"); err != nil {
				return err
			}
			close(inserted)
			<-release
			return nil
		})
	}()

	select {
	case <-inserted:
	case err := <-done:
		t.Fatalf("writer finished early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatalf("writer did not insert")
	}

	reader := WithWorker(context.Background(), "reader")
	seen, err := Execute(reader, tpl, func(ctx context.Context, q Queryer) (int, error) {
		return countArtists(t, q), nil
	})
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	if seen != 0 {
		t.Fatalf("uncommitted row visible to another worker")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("writer: %v", err)
	}
	if got := countArtists(t, tpl.Reader(reader)); got != 1 {
		t.Fatalf("expected committed row visible, got %d", got)
	}
}

func TestClassifyUniqueViolation(t *testing.T) {
	_, src := newTestSource(t)
	tpl := NewTxTemplate(src)
	ctx := context.Background()
	create := func(id string) error {
		return tpl.Run(ctx, func(ctx context.Context, q Queryer) error {
			return src.Classify(insertArtist(ctx, q, id, "Pablo Picasso"), "create artist %q", "Pablo Picasso")
		})
	}
	if err := create("1"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := create("2")
	if !errors.Is(err, ErrConstraintViolation) || !errors.Is(err, jujuerrors.AlreadyExists) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if got := countArtists(t, src.DB()); got != 1 {
		t.Fatalf("expected one row, got %d", got)
	}
	if src.Classify(nil, "noop") != nil {
		t.Fatalf("nil error must stay nil")
	}
	if wrapped := src.Classify(errBoom, "other"); !errors.Is(wrapped, errBoom) || errors.Is(wrapped, ErrConstraintViolation) {
		t.Fatalf("unexpected classification %v", wrapped)
	}
}

func TestStatementLoggingAndMetrics(t *testing.T) {
	logger := &captureLogger{}
	metrics := observability.NewExpvarMetricsRecorder("")
	_, src := newTestSource(t, WithLogger(logger), WithStatementLogging(true), WithMetricsRecorder(metrics))
	tpl := NewTxTemplate(src)

	if err := tpl.Run(context.Background(), func(ctx context.Context, q Queryer) error {
		return insertArtist(ctx, q, "1", "Claude Monet")
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if logger.count("sql statement") != 1 {
		t.Fatalf("expected one logged statement, got %d", logger.count("sql statement"))
	}
	snap := metrics.Snapshot()
	if snap.Results[observability.OpUnitOfWork]["success"] != 1 {
		t.Fatalf("expected unit of work metric, got %+v", snap.Results)
	}
	if snap.Results[observability.OpBorrow]["success"] != 1 {
		t.Fatalf("expected borrow metric, got %+v", snap.Results)
	}
	if snap.Results[observability.OpOpenSource]["success"] != 1 {
		t.Fatalf("expected open metric, got %+v", snap.Results)
	}
}

func TestRollbackErrorUnwrapsBoth(t *testing.T) {
	rbErr := errors.New("connection reset")
	err := error(&RollbackError{Err: errBoom, RollbackErr: rbErr})
	if !errors.Is(err, errBoom) || !errors.Is(err, rbErr) {
		t.Fatalf("expected both causes reachable")
	}
	if err.Error() != "boom (rollback failed: connection reset)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
