// Package testutil provides a stub Postgres database for exercising the pgx
// opener and the unit-of-work executor without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"
)

var stubSeq atomic.Uint64

// ErrRollbackFailed is returned by a rollback when FailRollback is set.
var ErrRollbackFailed = errors.New("stub rollback failed")

// StubConn records statements and keeps committed rows per table. Rows written
// inside a transaction become visible only on commit.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	Tables     map[string][]map[string]any
	Unique     map[string]string
	Isolations []driver.IsolationLevel
	Commits    int
	Rollbacks  int

	FailBegin    bool
	FailCommit   bool
	FailRollback bool
	pending      map[string][]map[string]any
	inTx         bool
}

// NewStubDB registers a driver backed by one shared stub connection and opens
// a pool on it. unique maps table names to a column that must stay unique.
func NewStubDB(unique map[string]string) (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any), Unique: unique}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Rows returns a copy of the committed rows of table.
func (c *StubConn) Rows(table string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.Tables[table]...)
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.Isolations = append(c.Isolations, opts.Isolation)
	c.inTx = true
	c.pending = make(map[string][]map[string]any, len(c.Tables))
	for table, rows := range c.Tables {
		c.pending[table] = append([]map[string]any(nil), rows...)
	}
	return &stubTx{conn: c}, nil
}

func (c *StubConn) view() map[string][]map[string]any {
	if c.inTx {
		return c.pending
	}
	return c.Tables
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	view := c.view()
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "INSERT INTO"):
		table, cols, err := parseInsert(query)
		if err != nil {
			return nil, err
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		if col, ok := c.Unique[table]; ok {
			for _, existing := range view[table] {
				if existing[col] == row[col] {
					return nil, &pgconn.PgError{
						Severity:       "ERROR",
						Code:           "23505",
						Message:        fmt.Sprintf("duplicate key value violates unique constraint \"%s_%s_key\"", table, col),
						TableName:      table,
						ConstraintName: table + "_" + col + "_key",
					}
				}
			}
		}
		view[table] = append(view[table], row)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "DELETE FROM"):
		table, col, err := parseDelete(query)
		if err != nil {
			return nil, err
		}
		if col == "" {
			n := len(view[table])
			view[table] = nil
			return driver.RowsAffected(n), nil
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("missing args for delete %s", table)
		}
		var kept []map[string]any
		for _, row := range view[table] {
			if row[col] != args[0].Value {
				kept = append(kept, row)
			}
		}
		n := len(view[table]) - len(kept)
		view[table] = kept
		return driver.RowsAffected(n), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table, cols, where, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	var values [][]driver.Value
	for _, row := range c.view()[table] {
		if where != "" && (len(args) == 0 || row[where] != args[0].Value) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = false
	if c.FailCommit {
		c.pending = nil
		return fmt.Errorf("commit fail")
	}
	c.Tables = c.pending
	c.pending = nil
	c.Commits++
	return nil
}

func (t *stubTx) Rollback() error {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = false
	c.pending = nil
	if c.FailRollback {
		return ErrRollbackFailed
	}
	c.Rollbacks++
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	return tableName(rest[:open]), splitColumns(rest[open+1 : closeIdx]), nil
}

// parseDelete returns the table and the predicate column, empty for an
// unconditional delete.
func parseDelete(query string) (string, string, error) {
	rest := strings.TrimSpace(query)[len("delete from "):]
	whereIdx := strings.Index(strings.ToLower(rest), " where ")
	if whereIdx == -1 {
		return tableName(rest), "", nil
	}
	parts := strings.SplitN(rest[whereIdx+len(" where "):], "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("cannot parse delete predicate: %s", query)
	}
	return tableName(rest[:whereIdx]), strings.ToLower(strings.TrimSpace(parts[0])), nil
}

// parseSelect understands "SELECT cols FROM table [WHERE col = $1]".
func parseSelect(query string) (string, []string, string, error) {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)
	fromIdx := strings.Index(lower, " from ")
	if !strings.HasPrefix(lower, "select ") || fromIdx == -1 {
		return "", nil, "", fmt.Errorf("cannot parse select: %s", query)
	}
	cols := splitColumns(trimmed[len("select "):fromIdx])
	rest := trimmed[fromIdx+len(" from "):]
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, "", fmt.Errorf("cannot parse select: %s", query)
	}
	var where string
	if whereIdx := strings.Index(strings.ToLower(rest), " where "); whereIdx != -1 {
		where = strings.ToLower(strings.TrimSpace(strings.SplitN(rest[whereIdx+len(" where "):], "=", 2)[0]))
	}
	return tableName(fields[0]), cols, where, nil
}

func tableName(raw string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(raw)), `"`)
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
