// Package rowmapper converts result rows into domain records. Each entity has
// a private row struct whose scanArgs order matches its exported column list,
// so SELECT statements built from the column lists scan positionally.
package rowmapper

import (
	"database/sql"
	"fmt"
	"time"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanAll drains rows through scan and closes them.
func ScanAll[T any](rows *sql.Rows, scan func(Scanner) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// nullToString converts sql.NullString to string.
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// StringToNull stores empty strings as NULL.
func StringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Timestamp normalises a time for storage: UTC, microsecond precision, which
// is what Postgres TIMESTAMP keeps.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
