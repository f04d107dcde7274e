package schema

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

func TestSplitStatements(t *testing.T) {
	for _, dialect := range []Dialect{Postgres, SQLite} {
		for _, service := range domain.Services() {
			ddl, err := DDL(dialect, service)
			if err != nil {
				t.Fatalf("ddl %s/%s: %v", dialect, service, err)
			}
			stmts := SplitStatements(ddl)
			if len(stmts) == 0 {
				t.Fatalf("expected statements for %s/%s", dialect, service)
			}
			for _, stmt := range stmts {
				if strings.HasPrefix(stmt, "--") {
					t.Fatalf("statement unexpectedly starts with comment: %q", stmt)
				}
				if !strings.HasSuffix(stmt, ";") {
					t.Fatalf("statement missing semicolon terminator: %q", stmt)
				}
			}
		}
	}
}

func TestSplitStatementsKeepsUnterminatedTail(t *testing.T) {
	stmts := SplitStatements("-- header\nCREATE TABLE a (id TEXT);\n\nSELECT 1")
	if len(stmts) != 2 || stmts[1] != "SELECT 1" {
		t.Fatalf("unexpected statements %q", stmts)
	}
}

func TestDDLRejectsUnknownService(t *testing.T) {
	if _, err := DDL(SQLite, "gateway"); err == nil {
		t.Fatalf("expected error for unknown service")
	}
}

func TestDialectFor(t *testing.T) {
	if d, err := DialectFor("postgres://h/rococo-auth"); err != nil || d != Postgres {
		t.Fatalf("expected postgres, got %s %v", d, err)
	}
	if d, err := DialectFor("sqlite:/tmp/a.db"); err != nil || d != SQLite {
		t.Fatalf("expected sqlite, got %s %v", d, err)
	}
	if _, err := DialectFor("mysql://h/x"); !errors.Is(err, database.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestApplySQLiteSchemaIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "rococo.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	for range 2 {
		for _, service := range []domain.Service{domain.ServiceArtists, domain.ServiceFiles, domain.ServiceAuth} {
			if err := Apply(ctx, db, SQLite, service); err != nil {
				t.Fatalf("apply %s: %v", service, err)
			}
		}
	}
	for _, table := range []string{"artists", "image_content", "image_metadata", "users", "authorities"} {
		var name string
		if err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name); err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}
}
