package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	jujuerrors "github.com/juju/errors"

	"rococodb/internal/blob"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultEndpoints(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Endpoint(domain.ServiceArtists); got != "postgres://rococo-db:5432/rococo-artists" {
		t.Fatalf("unexpected docker endpoint %s", got)
	}
	cfg.Profile = ProfileLocal
	if got := cfg.Endpoint(domain.ServiceAuth); got != "postgres://127.0.0.1:5432/rococo-auth" {
		t.Fatalf("unexpected local endpoint %s", got)
	}
	cfg.Database.Host = "db.internal"
	if got := cfg.Endpoint(domain.ServiceFiles); got != "postgres://db.internal:5432/rococo-files" {
		t.Fatalf("explicit host should win, got %s", got)
	}
	creds := cfg.Credentials(cfg.Endpoint(domain.ServiceFiles))
	if creds.User != DefaultUser || creds.Password != DefaultPassword {
		t.Fatalf("unexpected credentials %+v", creds)
	}
}

func TestSQLiteEndpoints(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = database.DriverSQLite
	cfg.Database.SQLiteDir = "/tmp/rococo"
	ep := cfg.Endpoint(domain.ServicePaintings)
	if ep != "sqlite:/tmp/rococo/rococo-paintings.db" {
		t.Fatalf("unexpected endpoint %s", ep)
	}
	if ep.Driver() != database.DriverSQLite {
		t.Fatalf("expected sqlite driver")
	}
	if !cfg.Credentials(ep).Empty() {
		t.Fatalf("sqlite endpoints carry no credentials")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"ROCOCO_PROFILE":           "local",
		"ROCOCO_DB_PORT":           "15432",
		"ROCOCO_DB_USER":           "rococo",
		"ROCOCO_DB_PASSWORD":       "pw",
		"ROCOCO_DB_POOL_MAX":       "8",
		"ROCOCO_DB_POOL_IDLE":      "2",
		"ROCOCO_DB_BORROW_TIMEOUT": "250ms",
		"ROCOCO_DB_CLEANUP":        "true",
		"ROCOCO_LOG_LEVEL":         "debug",
		"ROCOCO_TEST_USERNAME":     "duck",
		"ROCOCO_BLOB_DRIVER":       "s3",
		"ROCOCO_BLOB_S3_BUCKET":    "photos",
		"ROCOCO_DB_HOST":           "",
	}))
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Profile != ProfileLocal || cfg.Database.Port != 15432 || cfg.Host() != "127.0.0.1" {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	pool := cfg.PoolOptions()
	if pool.MaxOpenConns != 8 || pool.MaxIdleConns != 2 || pool.BorrowTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected pool %+v", pool)
	}
	if !cfg.Database.Cleanup || cfg.LogLevel != slog.LevelDebug || cfg.TestUser.Username != "duck" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.TestUser.Password != DefaultTestUserPassword {
		t.Fatalf("unset variables must keep defaults")
	}
	if cfg.Photos.Blob.Driver != blob.DriverS3 || cfg.Photos.Blob.S3.Bucket != "photos" {
		t.Fatalf("unexpected blob config %+v", cfg.Photos.Blob)
	}
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	for key, value := range map[string]string{
		"ROCOCO_DB_PORT":           "five",
		"ROCOCO_DB_BORROW_TIMEOUT": "soon",
		"ROCOCO_DB_CLEANUP":        "maybe",
		"ROCOCO_LOG_LEVEL":         "loud",
	} {
		err := Default().ApplyEnv(envMap(map[string]string{key: value}))
		if !errors.Is(err, database.ErrConfiguration) || !errors.Is(err, jujuerrors.NotValid) {
			t.Fatalf("%s=%s: expected configuration error, got %v", key, value, err)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"profile": func(c *Config) { c.Profile = "cloud" },
		"driver":  func(c *Config) { c.Database.Driver = "mysql" },
		"port":    func(c *Config) { c.Database.Port = 0 },
		"sqlite":  func(c *Config) { c.Database.Driver = database.DriverSQLite; c.Database.SQLiteDir = "" },
		"pool":    func(c *Config) { c.Database.Pool.MaxOpen = -1 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, database.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rococo.yaml")
	doc := []byte(`
profile: local
database:
  driver: sqlite
  sqlite_dir: /var/lib/rococo
  pool:
    borrow_timeout: 2s
test_user:
  username: file_user
log_level: warn
photos:
  prefix: photos/
  blob:
    driver: memory
`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ROCOCO_CONFIG_FILE", path)
	t.Setenv("ROCOCO_TEST_USERNAME", "env_user")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != database.DriverSQLite || cfg.Database.SQLiteDir != "/var/lib/rococo" {
		t.Fatalf("file values not applied: %+v", cfg.Database)
	}
	if cfg.Database.Pool.BorrowTimeout != 2*time.Second || cfg.Database.Pool.MaxOpen != database.DefaultMaxOpenConns {
		t.Fatalf("unexpected pool %+v", cfg.Database.Pool)
	}
	if cfg.TestUser.Username != "env_user" || cfg.TestUser.Password != DefaultTestUserPassword {
		t.Fatalf("env must override file: %+v", cfg.TestUser)
	}
	if cfg.LogLevel != slog.LevelWarn || cfg.Photos.Prefix != "photos/" || cfg.Photos.Blob.Driver != blob.DriverMemory {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("database: [oops"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ROCOCO_CONFIG_FILE", path)
	if _, err := Load(); !errors.Is(err, database.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	t.Setenv("ROCOCO_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing file error")
	}
}
