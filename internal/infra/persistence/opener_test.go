package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"rococodb/internal/database"
)

func TestOpenerDispatch(t *testing.T) {
	ctx := context.Background()
	o := NewOpener()

	db, err := o.Open(ctx, database.Endpoint("sqlite:"+filepath.Join(t.TempDir(), "a.db")), database.Credentials{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping sqlite: %v", err)
	}
	_ = db.Close()

	if _, err := o.Open(ctx, "postgres://localhost:5432/rococo-auth", database.Credentials{}); !errors.Is(err, database.ErrConfiguration) {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	if _, err := o.Open(ctx, "redis://localhost", database.Credentials{}); !errors.Is(err, database.ErrConfiguration) {
		t.Fatalf("expected unsupported scheme error, got %v", err)
	}
	if o.IsUniqueViolation(errors.New("plain")) {
		t.Fatalf("plain error is not a unique violation")
	}
}
