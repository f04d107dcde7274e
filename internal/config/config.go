// Package config resolves where the rococo databases live and how fixtures
// connect to them.
//
// Values are layered: built-in defaults, then the YAML file named by
// ROCOCO_CONFIG_FILE (when set), then ROCOCO_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"rococodb/internal/blob"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

// Profile selects host defaults for where the fixtures run.
type Profile string

const (
	// ProfileLocal targets databases published on the loopback interface.
	ProfileLocal Profile = "local"
	// ProfileDocker targets the compose network host rococo-db.
	ProfileDocker Profile = "docker"
)

// Defaults.
const (
	DefaultPort             = 5432
	DefaultUser             = "postgres"
	DefaultPassword         = "secret"
	DefaultSQLiteDir        = "./.rococo"
	DefaultTestUsername     = "test_user"
	DefaultTestUserPassword = "12345"
	DefaultPhotoPrefix      = "img/original/"
)

// Config is the resolved fixture configuration.
type Config struct {
	Profile  Profile        `yaml:"profile"`
	Database DatabaseConfig `yaml:"database"`
	TestUser TestUserConfig `yaml:"test_user"`
	Photos   PhotosConfig   `yaml:"photos"`
	LogLevel slog.Level     `yaml:"log_level"`
}

// DatabaseConfig describes the service databases.
type DatabaseConfig struct {
	Driver        database.Driver `yaml:"driver"`
	Host          string          `yaml:"host"`
	Port          int             `yaml:"port"`
	User          string          `yaml:"user"`
	Password      string          `yaml:"password"`
	SQLiteDir     string          `yaml:"sqlite_dir"`
	Pool          PoolConfig      `yaml:"pool"`
	Cleanup       bool            `yaml:"cleanup"`
	LogStatements bool            `yaml:"log_statements"`
}

// PoolConfig bounds every connection pool.
type PoolConfig struct {
	MaxOpen       int           `yaml:"max_open"`
	MaxIdle       int           `yaml:"max_idle"`
	BorrowTimeout time.Duration `yaml:"borrow_timeout"`
}

// TestUserConfig is the account EnsureTestUser provisions.
type TestUserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PhotosConfig locates the original photos used by fixtures.
type PhotosConfig struct {
	Prefix string      `yaml:"prefix"`
	Blob   blob.Config `yaml:"blob"`
}

// Default returns the docker profile against Postgres.
func Default() *Config {
	pool := database.DefaultPoolOptions()
	return &Config{
		Profile: ProfileDocker,
		Database: DatabaseConfig{
			Driver:    database.DriverPostgres,
			Port:      DefaultPort,
			User:      DefaultUser,
			Password:  DefaultPassword,
			SQLiteDir: DefaultSQLiteDir,
			Pool: PoolConfig{
				MaxOpen:       pool.MaxOpenConns,
				MaxIdle:       pool.MaxIdleConns,
				BorrowTimeout: pool.BorrowTimeout,
			},
		},
		TestUser: TestUserConfig{Username: DefaultTestUsername, Password: DefaultTestUserPassword},
		Photos: PhotosConfig{
			Prefix: DefaultPhotoPrefix,
			Blob:   blob.Config{Driver: blob.DriverFilesystem, FSRoot: "."},
		},
		LogLevel: slog.LevelInfo,
	}
}

// Load resolves the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("ROCOCO_CONFIG_FILE"), os.LookupEnv)
}

// LoadFrom layers the YAML file at path (skipped when empty) and the
// variables visible through lookup over the defaults.
func LoadFrom(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the YAML document at path onto c. Keys absent from the
// document keep their current values.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return database.ConfigurationErrorf("parse config %s: %v", path, err)
	}
	return nil
}

// Validate rejects settings no endpoint can be built from.
func (c *Config) Validate() error {
	switch c.Profile {
	case ProfileLocal, ProfileDocker:
	default:
		return database.ConfigurationErrorf("unknown profile %q", c.Profile)
	}
	switch c.Database.Driver {
	case database.DriverPostgres:
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return database.ConfigurationErrorf("database port %d out of range", c.Database.Port)
		}
	case database.DriverSQLite:
		if c.Database.SQLiteDir == "" {
			return database.ConfigurationErrorf("sqlite driver needs a directory")
		}
	default:
		return database.ConfigurationErrorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Pool.MaxOpen < 0 || c.Database.Pool.MaxIdle < 0 || c.Database.Pool.BorrowTimeout < 0 {
		return database.ConfigurationErrorf("negative pool setting %+v", c.Database.Pool)
	}
	return nil
}

// Host returns the configured database host or the profile default.
func (c *Config) Host() string {
	if c.Database.Host != "" {
		return c.Database.Host
	}
	if c.Profile == ProfileLocal {
		return "127.0.0.1"
	}
	return "rococo-db"
}

// Endpoint returns the endpoint of the database owned by service.
func (c *Config) Endpoint(service domain.Service) database.Endpoint {
	name := service.DatabaseName()
	if c.Database.Driver == database.DriverSQLite {
		return database.Endpoint("sqlite:" + filepath.Join(c.Database.SQLiteDir, name+".db"))
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host(), strconv.Itoa(c.Database.Port)),
		Path:   "/" + name,
	}
	return database.Endpoint(u.String())
}

// Credentials implements database.CredentialsResolver. SQLite endpoints get
// none.
func (c *Config) Credentials(endpoint database.Endpoint) database.Credentials {
	if endpoint.Driver() != database.DriverPostgres {
		return database.Credentials{}
	}
	return database.Credentials{User: c.Database.User, Password: c.Database.Password}
}

// PoolOptions converts the pool settings for database.WithPoolOptions.
func (c *Config) PoolOptions() database.PoolOptions {
	return database.PoolOptions{
		MaxOpenConns:  c.Database.Pool.MaxOpen,
		MaxIdleConns:  c.Database.Pool.MaxIdle,
		BorrowTimeout: c.Database.Pool.BorrowTimeout,
	}
}
