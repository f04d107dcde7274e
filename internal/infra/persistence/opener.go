// Package persistence selects the driver-specific opener for an endpoint.
package persistence

import (
	"context"
	"database/sql"

	"rococodb/internal/database"
	"rococodb/internal/infra/persistence/postgres"
	"rococodb/internal/infra/persistence/sqlite"
)

var _ database.Opener = Opener{}

// Opener dispatches on the endpoint scheme: postgres:// and postgresql://
// go to pgx, sqlite: and file: go to modernc sqlite.
type Opener struct {
	Postgres postgres.Opener
	SQLite   sqlite.Opener
}

// NewOpener returns an opener covering every supported driver.
func NewOpener() Opener { return Opener{} }

// Open implements database.Opener.
func (o Opener) Open(ctx context.Context, endpoint database.Endpoint, creds database.Credentials) (*sql.DB, error) {
	switch endpoint.Driver() {
	case database.DriverPostgres:
		return o.Postgres.Open(ctx, endpoint, creds)
	case database.DriverSQLite:
		return o.SQLite.Open(ctx, endpoint, creds)
	}
	return nil, database.ConfigurationErrorf("unsupported endpoint scheme in %s", endpoint)
}

// IsUniqueViolation implements database.Opener. Driver error types do not
// overlap, so both classifiers are consulted.
func (o Opener) IsUniqueViolation(err error) bool {
	return o.Postgres.IsUniqueViolation(err) || o.SQLite.IsUniqueViolation(err)
}
