// Package schema exposes the per-service DDL used to bootstrap local and test
// databases. Production schemas are owned and migrated by the services.
package schema

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqldocs "rococodb/docs/schema/sql"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

// Dialect selects the DDL flavour.
type Dialect string

// Supported dialects.
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor maps an endpoint to its DDL dialect.
func DialectFor(endpoint database.Endpoint) (Dialect, error) {
	switch endpoint.Driver() {
	case database.DriverPostgres:
		return Postgres, nil
	case database.DriverSQLite:
		return SQLite, nil
	}
	return "", database.ConfigurationErrorf("no schema dialect for %s", endpoint)
}

// DDL returns the script creating the tables of service.
func DDL(dialect Dialect, service domain.Service) (string, error) {
	if !service.Valid() {
		return "", fmt.Errorf("unknown service %q", service)
	}
	raw, err := sqldocs.Scripts.ReadFile(string(dialect) + "/" + string(service) + ".sql")
	if err != nil {
		return "", fmt.Errorf("read %s ddl for %s: %w", dialect, service, err)
	}
	return string(raw), nil
}

// Execer is satisfied by *sql.DB, *sql.Conn, *sql.Tx and database.Queryer.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply executes every statement of the service DDL in order.
func Apply(ctx context.Context, exec Execer, dialect Dialect, service domain.Service) error {
	ddl, err := DDL(dialect, service)
	if err != nil {
		return err
	}
	for _, stmt := range SplitStatements(ddl) {
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl for %s: %w", service, err)
		}
	}
	return nil
}

// SplitStatements splits a semicolon-terminated DDL script into executable statements.
// It drops blank lines and single-line comments that start with "--".
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()
	return stmts
}
