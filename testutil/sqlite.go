package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"rococodb/internal/database"
	"rococodb/internal/infra/persistence/sqlite"
	"rococodb/internal/schema"
	"rococodb/pkg/domain"
)

// SQLiteEndpoint names the database file of service inside dir.
func SQLiteEndpoint(dir string, service domain.Service) database.Endpoint {
	return database.Endpoint("sqlite:" + filepath.Join(dir, service.DatabaseName()+".db"))
}

// SQLiteRegistry returns a registry backed by the modernc opener. It is
// closed when the test ends.
func SQLiteRegistry(t testing.TB, opts ...database.Option) *database.Registry {
	t.Helper()
	reg := database.NewRegistry(sqlite.Opener{}, nil, opts...)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

// ServiceSource opens the database of service under dir through reg and
// applies its schema.
func ServiceSource(t testing.TB, reg *database.Registry, dir string, service domain.Service) *database.Source {
	t.Helper()
	ctx := context.Background()
	src, err := reg.SourceFor(ctx, SQLiteEndpoint(dir, service))
	if err != nil {
		t.Fatalf("open %s: %v", service, err)
	}
	if err := schema.Apply(ctx, src.DB(), schema.SQLite, service); err != nil {
		t.Fatalf("apply %s schema: %v", service, err)
	}
	return src
}

// CountRows returns the number of rows in table on src.
func CountRows(t testing.TB, src *database.Source, table string) int {
	t.Helper()
	var n int
	if err := src.DB().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
