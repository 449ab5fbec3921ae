package cmd

import (
	"context"
	"io"

	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/mount"
)

// API is the part of an open filesystem that commands work with.
type API interface {
	// GetPath parses a path whose home alias expands to the filesystem account.
	GetPath(first string, more ...string) (data.ObjectPath, error)

	// PathMatcher compiles "glob:<pattern>" or "regex:<pattern>".
	PathMatcher(syntaxAndPattern string) (mount.DirectoryFilter, error)

	Stat(ctx context.Context, p data.ObjectPath) (*data.FileStat, error)

	// NewDirectoryStream lists the children of dir once. A nil filter accepts all.
	NewDirectoryStream(ctx context.Context, dir data.ObjectPath, filter mount.DirectoryFilter) (*mount.DirectoryStream, error)

	NewInputStream(ctx context.Context, p data.ObjectPath) (io.ReadCloser, error)

	// NewOutputStream stages writes locally and uploads them on Close.
	NewOutputStream(ctx context.Context, p data.ObjectPath, options data.OpenOption) (io.WriteCloser, error)

	CreateDirectory(ctx context.Context, p data.ObjectPath) error

	Delete(ctx context.Context, p data.ObjectPath, recursive bool) error

	Copy(ctx context.Context, src, dst data.ObjectPath, replace bool) error

	// Move copies src to dst and deletes src. It does not happen atomically.
	Move(ctx context.Context, src, dst data.ObjectPath, replace bool) error
}

// Command represents an executable command on an open filesystem.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "ls [-l] [path]")
	Usage() string

	// Execute runs the command with parsed arguments. Output is written to w.
	// Returns the exit code (0 = success) and the error that caused a failure.
	Execute(ctx context.Context, api API, args *CommandArgs, w io.Writer) (int, error)

	// GetFlags returns the flag set for this command, nil if it takes none
	GetFlags() *CommandFlagSet
}
