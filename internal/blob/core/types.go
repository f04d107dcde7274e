// Package core defines the blob store contract shared by the backends under
// internal/infra/blob and re-exported by package blob.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem reads photos from a local directory tree.
	DriverFilesystem Driver = "fs"
	// DriverS3 reads photos from an S3 / MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps photos in process memory (tests).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Info describes a stored blob.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is the subset of object storage the photo fixtures need.
type Store interface {
	// Put stores a new blob at key. It fails if the key already exists.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the blob at key. Missing keys yield an error matching ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Delete removes a blob, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = errors.New("blob not found")
	// ErrExists reports a Put over an existing key.
	ErrExists = errors.New("blob already exists")
)
