package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ROCOCO_CONFIG_FILE", "")
	t.Setenv("ROCOCO_DB_DRIVER", "sqlite")
	t.Setenv("ROCOCO_SQLITE_DIR", filepath.Join(dir, "db"))
	t.Setenv("ROCOCO_BLOB_DRIVER", "fs")
	t.Setenv("ROCOCO_BLOB_FS_ROOT", filepath.Join(dir, "photos"))
	t.Setenv("ROCOCO_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsageErrors(t *testing.T) {
	sqliteEnv(t)
	if code, _, stderr := run(t); code != 2 || !strings.Contains(stderr, "usage") {
		t.Fatalf("no command: code %d stderr %q", code, stderr)
	}
	if code, _, stderr := run(t, "migrate"); code != 2 || !strings.Contains(stderr, `unknown command "migrate"`) {
		t.Fatalf("unknown command: code %d stderr %q", code, stderr)
	}
	if code, _, _ := run(t, "-nope", "clear"); code != 2 {
		t.Fatalf("bad flag: code %d", code)
	}
}

func TestBadConfig(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("ROCOCO_DB_PORT", "many")
	if code, _, stderr := run(t, "clear"); code != 1 || !strings.Contains(stderr, "ROCOCO_DB_PORT") {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
}

func TestBootstrapSeedClear(t *testing.T) {
	dir := sqliteEnv(t)
	code, stdout, stderr := run(t, "bootstrap")
	if code != 0 || !strings.Contains(stdout, "schema applied") {
		t.Fatalf("bootstrap: code %d stdout %q stderr %q", code, stdout, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "db", "rococo-auth.db")); err != nil {
		t.Fatalf("auth database not created: %v", err)
	}

	code, stdout, stderr = run(t, "seed-user")
	if code != 0 || !strings.HasPrefix(stdout, "test_user ") {
		t.Fatalf("seed-user: code %d stdout %q stderr %q", code, stdout, stderr)
	}
	code, again, _ := run(t, "seed-user")
	if code != 0 || again != stdout {
		t.Fatalf("seed-user should be idempotent: %q vs %q", again, stdout)
	}

	code, stdout, stderr = run(t, "-metrics", "-trace", "clear")
	if code != 0 || !strings.Contains(stdout, "fixture data cleared") {
		t.Fatalf("clear: code %d stdout %q stderr %q", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "rococo_operations_total") {
		t.Fatalf("expected prometheus metrics in output, got %q", stdout)
	}
	if !strings.Contains(stderr, `"operation":"unit_of_work"`) {
		t.Fatalf("expected trace lines on stderr, got %q", stderr)
	}
}

func TestPhotos(t *testing.T) {
	dir := sqliteEnv(t)
	photos := filepath.Join(dir, "photos", "img", "original")
	if err := os.MkdirAll(photos, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"monet.png", "degas.jpg"} {
		if err := os.WriteFile(filepath.Join(photos, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	code, stdout, stderr := run(t, "photos")
	if code != 0 || stdout != "degas.jpg\nmonet.png\n" {
		t.Fatalf("photos: code %d stdout %q stderr %q", code, stdout, stderr)
	}
}
