package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type fileOpener struct {
	opened atomic.Int32
	fail   error
}

func (o *fileOpener) Open(_ context.Context, endpoint Endpoint, _ Credentials) (*sql.DB, error) {
	o.opened.Add(1)
	if o.fail != nil {
		return nil, o.fail
	}
	path := strings.TrimPrefix(string(endpoint), "sqlite:")
	return sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
}

func (o *fileOpener) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func tempEndpoint(t *testing.T, name string) Endpoint {
	t.Helper()
	return Endpoint("sqlite:" + filepath.Join(t.TempDir(), name+".db"))
}

func newTestSource(t *testing.T, opts ...Option) (*Registry, *Source) {
	t.Helper()
	reg := NewRegistry(&fileOpener{}, nil, opts...)
	t.Cleanup(func() { _ = reg.Close() })
	src, err := reg.SourceFor(context.Background(), tempEndpoint(t, "artists"))
	if err != nil {
		t.Fatalf("source for: %v", err)
	}
	if _, err := src.DB().Exec(`CREATE TABLE artists (id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return reg, src
}

func countArtists(t *testing.T, q Queryer) int {
	t.Helper()
	var n int
	if err := q.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM artists`).Scan(&n); err != nil {
		t.Fatalf("count artists: %v", err)
	}
	return n
}

func insertArtist(ctx context.Context, q Queryer, id, name string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO artists (id, name) VALUES ($1, $2)`, id, name)
	return err
}

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (c *captureLogger) record(msg string) {
	c.mu.Lock()
	c.entries = append(c.entries, msg)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.record(msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.record(msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.record(msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.record(msg) }

func (c *captureLogger) count(msg string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e == msg {
			n++
		}
	}
	return n
}
