package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"rococodb/internal/blob/core"
)

func TestStore_MissingGet(t *testing.T) {
	s := New()
	if _, _, err := s.Get(context.Background(), "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_AllBranches(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Put(ctx, "artists/a.png", bytes.NewReader([]byte("one")), core.PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "artists/a.png", bytes.NewReader([]byte("two")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "museums/b.png", bytes.NewReader([]byte("b")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, rc, err := s.Get(ctx, "artists/a.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "one" || info.ContentType != "image/png" || info.Size != 3 {
		t.Fatalf("unexpected blob %q %+v", data, info)
	}
	list, err := s.List(ctx, "artists/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v %v", list, err)
	}
	if ok, _ := s.Delete(ctx, "artists/a.png"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := s.Delete(ctx, "artists/a.png"); ok {
		t.Fatalf("expected second delete to report missing blob")
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStore_PutReadError(t *testing.T) {
	if _, err := New().Put(context.Background(), "k", errReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}
