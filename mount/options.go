package mount

import (
	"fmt"
	"os"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/log"
)

type MountOptions struct {
	StagingDir string // Directory holding the staging files of write channels.
	PageSize   int    // Entries requested per listing page.
	ReadOnly   bool   // Whether the mount rejects every remote modification.

	Logger *log.Logger
}

type MountOption func(*MountOptions) error

func newDefaultMountOptions() *MountOptions {
	return &MountOptions{
		StagingDir: os.TempDir(),
		PageSize:   backend.DefaultPageSize,
		ReadOnly:   false,
		Logger:     log.Discard(),
	}
}

// WithStagingDir sets where staging files are created.
func WithStagingDir(dir string) MountOption {
	return func(mo *MountOptions) error {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("failed to use staging directory '%s': %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("staging path '%s' is not a directory", dir)
		}
		mo.StagingDir = dir
		return nil
	}
}

// WithPageSize sets the number of entries fetched per listing request.
func WithPageSize(size int) MountOption {
	return func(mo *MountOptions) error {
		if size <= 0 {
			return fmt.Errorf("page size must be positive, got %d", size)
		}
		mo.PageSize = size
		return nil
	}
}

// AsReadOnly specifies, if this mount is in a readonly state.
func AsReadOnly() MountOption {
	return func(mo *MountOptions) error {
		mo.ReadOnly = true
		return nil
	}
}

func WithLogger(logger *log.Logger) MountOption {
	return func(mo *MountOptions) error {
		if logger != nil {
			mo.Logger = logger
		}
		return nil
	}
}
