// Package blob re-exports the blob store contract and selects a backend for
// the photo fixtures.
package blob

import (
	"rococodb/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = core.ErrNotFound
	// ErrExists reports a Put over an existing key.
	ErrExists = core.ErrExists
)
