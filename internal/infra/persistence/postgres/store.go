// Package postgres opens database/sql pools for postgres:// endpoints through
// the pgx driver and recognises Postgres constraint failures.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"rococodb/internal/database"
)

const (
	driverName = "pgx"
	// SQLSTATE raised for unique and primary key conflicts.
	uniqueViolation = "23505"
	// Every service keeps its tables in this schema.
	defaultSearchPath = "rococo"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var _ database.Opener = Opener{}

// Opener builds pgx-backed pools.
type Opener struct{}

// Open validates the endpoint, injects credentials when the URL carries none
// and opens a lazily connecting pool.
func (Opener) Open(_ context.Context, endpoint database.Endpoint, creds database.Credentials) (*sql.DB, error) {
	dsn, err := DSN(endpoint, creds)
	if err != nil {
		return nil, err
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres %s: %w", endpoint, err)
	}
	return db, nil
}

// DSN returns the connection string for endpoint. Credentials embedded in the
// URL win over creds; an endpoint left without a user is a configuration error.
// The search path defaults to the rococo schema.
func DSN(endpoint database.Endpoint, creds database.Credentials) (string, error) {
	if endpoint.Driver() != database.DriverPostgres {
		return "", database.ConfigurationErrorf("%s is not a postgres endpoint", endpoint)
	}
	u, err := url.Parse(string(endpoint))
	if err != nil {
		return "", database.ConfigurationErrorf("parse endpoint %s: %v", endpoint, err)
	}
	if u.User == nil || u.User.Username() == "" {
		if creds.Empty() {
			return "", database.ConfigurationErrorf("no credentials for %s", endpoint)
		}
		u.User = url.UserPassword(creds.User, creds.Password)
	}
	q := u.Query()
	if q.Get("search_path") == "" {
		q.Set("search_path", defaultSearchPath)
		u.RawQuery = q.Encode()
	}
	dsn := u.String()
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", database.ConfigurationErrorf("parse postgres config for %s: %v", endpoint, err)
	}
	return dsn, nil
}

// IsUniqueViolation reports SQLSTATE 23505.
func (Opener) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// OverrideSQLOpen swaps the sql.Open implementation used by Opener. It returns
// a restore function; tests use it to route pools to a stub driver.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
