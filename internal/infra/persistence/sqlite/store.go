// Package sqlite opens database/sql pools for sqlite: and file: endpoints on
// the pure Go modernc driver. Local and CI fixture runs use it in place of the
// service Postgres databases.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"rococodb/internal/database"
)

const (
	driverName = "sqlite"
	memoryPath = ":memory:"
)

// Pragmas applied to every connection. WAL lets readers proceed while a
// worker holds an open write transaction.
var defaultPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

var _ database.Opener = Opener{}

// Opener builds modernc sqlite pools. Credentials are ignored.
type Opener struct{}

// Open creates the parent directory of the database file when needed.
func (Opener) Open(_ context.Context, endpoint database.Endpoint, _ database.Credentials) (*sql.DB, error) {
	path, err := Path(endpoint)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs for %s: %w", endpoint, err)
	}
	db, err := sql.Open(driverName, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", endpoint, err)
	}
	return db, nil
}

// Path extracts the database file path from a sqlite: or file: endpoint.
// Query parameters on the endpoint are dropped. In-memory databases are
// rejected: every pooled connection would see its own empty database.
func Path(endpoint database.Endpoint) (string, error) {
	if endpoint.Driver() != database.DriverSQLite {
		return "", database.ConfigurationErrorf("%s is not a sqlite endpoint", endpoint)
	}
	raw := string(endpoint)
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimPrefix(raw, "//")
	if raw == "" {
		return "", database.ConfigurationErrorf("%s names no database file", endpoint)
	}
	if raw == memoryPath {
		return "", database.ConfigurationErrorf("%s is an in-memory database; use a file path", endpoint)
	}
	return raw, nil
}

// DSN renders the modernc connection string for path.
func DSN(path string) string {
	q := url.Values{}
	for _, p := range defaultPragmas {
		q.Add("_pragma", p)
	}
	q.Set("_time_format", "sqlite")
	return path + "?" + q.Encode()
}

// IsUniqueViolation reports SQLite unique and primary key conflicts.
func (Opener) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
