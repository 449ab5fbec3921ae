package objfs

import (
	"fmt"

	"github.com/mwantia/objfs/config"
	"github.com/mwantia/objfs/log"
)

type RegistryOptions struct {
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool
	Logger        *log.Logger

	SettingsFile string
	StagingDir   string
	PageSize     int
	ReadOnly     bool

	Factory BackendFactory
}

type RegistryOption func(*RegistryOptions) error

func newDefaultRegistryOptions() *RegistryOptions {
	return &RegistryOptions{
		LogLevel:     log.Info,
		SettingsFile: config.DefaultSettingsFile,
		Factory:      NewBackend,
	}
}

func WithLogLevel(logLevel log.LogLevel) RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

// WithLogger replaces the logger built from the other log options.
func WithLogger(logger *log.Logger) RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.Logger = logger
		return nil
	}
}

// WithSettingsFile sets the system settings file, "" disables it.
func WithSettingsFile(path string) RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.SettingsFile = path
		return nil
	}
}

func WithStagingDir(dir string) RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.StagingDir = dir
		return nil
	}
}

func WithPageSize(size int) RegistryOption {
	return func(opts *RegistryOptions) error {
		if size <= 0 {
			return fmt.Errorf("page size must be positive, got %d", size)
		}
		opts.PageSize = size
		return nil
	}
}

// AsReadOnly opens every filesystem of the registry read-only.
func AsReadOnly() RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.ReadOnly = true
		return nil
	}
}

// WithBackendFactory replaces the scheme based backend selection.
func WithBackendFactory(factory BackendFactory) RegistryOption {
	return func(opts *RegistryOptions) error {
		if factory == nil {
			return fmt.Errorf("backend factory must not be nil")
		}
		opts.Factory = factory
		return nil
	}
}
