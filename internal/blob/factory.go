package blob

import (
	"context"
	"fmt"

	"rococodb/internal/infra/blob/fs"
	"rococodb/internal/infra/blob/memory"
	infraS3 "rococodb/internal/infra/blob/s3"
)

// DefaultFSRoot is where the filesystem driver looks for photos when no root
// is configured.
const DefaultFSRoot = "./photos"

// S3Config re-exports the infra S3 configuration.
type S3Config = infraS3.Config

// Config selects and configures a backend.
type Config struct {
	Driver Driver   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// Open builds the store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		root := cfg.FSRoot
		if root == "" {
			root = DefaultFSRoot
		}
		return fs.New(root)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
