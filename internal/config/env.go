package config

import (
	"strconv"
	"time"

	"rococodb/internal/database"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays ROCOCO_* variables onto c.
//
//	ROCOCO_PROFILE: local|docker
//	ROCOCO_DB_DRIVER: postgres|sqlite
//	ROCOCO_DB_HOST, ROCOCO_DB_PORT, ROCOCO_DB_USER, ROCOCO_DB_PASSWORD
//	ROCOCO_SQLITE_DIR: directory holding one file per service when driver=sqlite
//	ROCOCO_DB_POOL_MAX, ROCOCO_DB_POOL_IDLE, ROCOCO_DB_BORROW_TIMEOUT (Go duration)
//	ROCOCO_DB_CLEANUP, ROCOCO_DB_LOG_STATEMENTS: booleans
//	ROCOCO_LOG_LEVEL: debug|info|warn|error
//	ROCOCO_TEST_USERNAME, ROCOCO_TEST_USER_PASSWORD
//	ROCOCO_PHOTO_PREFIX: key prefix of original photos in the blob store
//	ROCOCO_BLOB_DRIVER: fs|s3|memory, ROCOCO_BLOB_FS_ROOT
//	ROCOCO_BLOB_S3_BUCKET, ROCOCO_BLOB_S3_REGION, ROCOCO_BLOB_S3_ENDPOINT,
//	ROCOCO_BLOB_S3_PATH_STYLE, ROCOCO_BLOB_S3_ACCESS_KEY_ID, ROCOCO_BLOB_S3_SECRET_ACCESS_KEY
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}
	e.str("ROCOCO_PROFILE", (*string)(&c.Profile))
	e.str("ROCOCO_DB_DRIVER", (*string)(&c.Database.Driver))
	e.str("ROCOCO_DB_HOST", &c.Database.Host)
	e.int("ROCOCO_DB_PORT", &c.Database.Port)
	e.str("ROCOCO_DB_USER", &c.Database.User)
	e.str("ROCOCO_DB_PASSWORD", &c.Database.Password)
	e.str("ROCOCO_SQLITE_DIR", &c.Database.SQLiteDir)
	e.int("ROCOCO_DB_POOL_MAX", &c.Database.Pool.MaxOpen)
	e.int("ROCOCO_DB_POOL_IDLE", &c.Database.Pool.MaxIdle)
	e.duration("ROCOCO_DB_BORROW_TIMEOUT", &c.Database.Pool.BorrowTimeout)
	e.bool("ROCOCO_DB_CLEANUP", &c.Database.Cleanup)
	e.bool("ROCOCO_DB_LOG_STATEMENTS", &c.Database.LogStatements)
	if v, ok := e.get("ROCOCO_LOG_LEVEL"); ok {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			e.fail("ROCOCO_LOG_LEVEL", v)
		}
	}
	e.str("ROCOCO_TEST_USERNAME", &c.TestUser.Username)
	e.str("ROCOCO_TEST_USER_PASSWORD", &c.TestUser.Password)
	e.str("ROCOCO_PHOTO_PREFIX", &c.Photos.Prefix)
	e.str("ROCOCO_BLOB_DRIVER", (*string)(&c.Photos.Blob.Driver))
	e.str("ROCOCO_BLOB_FS_ROOT", &c.Photos.Blob.FSRoot)
	s3 := &c.Photos.Blob.S3
	e.str("ROCOCO_BLOB_S3_BUCKET", &s3.Bucket)
	e.str("ROCOCO_BLOB_S3_REGION", &s3.Region)
	e.str("ROCOCO_BLOB_S3_ENDPOINT", &s3.Endpoint)
	e.bool("ROCOCO_BLOB_S3_PATH_STYLE", &s3.PathStyle)
	e.str("ROCOCO_BLOB_S3_ACCESS_KEY_ID", &s3.AccessKeyID)
	e.str("ROCOCO_BLOB_S3_SECRET_ACCESS_KEY", &s3.SecretAccessKey)
	return e.err
}

type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fail(key, value string) {
	if e.err == nil {
		e.err = database.ConfigurationErrorf("invalid %s=%q", key, value)
	}
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v)
		return
	}
	*dst = n
}

func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v)
		return
	}
	*dst = b
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v)
		return
	}
	*dst = d
}
