package backend

import (
	"context"
	"io"

	"github.com/mwantia/objfs/data"
)

// Backend is used as lifecycle entrypoint for other backend implementations.
type Backend interface {
	// Name returns the identifier name defined for this backend
	Name() string
	// Open is part of the lifecycle behaviour and gets called before the first request.
	Open(ctx context.Context) error
	// Close is part of the lifecycle behaviour and releases the client connection.
	Close(ctx context.Context) error

	// GetCapabilities returns a list of capabilities supported by this backend.
	GetCapabilities() *BackendCapabilities
}

// ObjectStorageBackend is the client of a flat, key-addressed object store.
// Keys are absolute slash separated strings, "/" being the always present root.
//
// Implementations report missing keys with errors.ErrNotExist and keep
// explicit directory markers: writing a key creates its missing parents.
type ObjectStorageBackend interface {
	Backend

	// HeadObject returns the stored metadata of key.
	HeadObject(ctx context.Context, key string) (*data.FileStat, error)

	// GetObject streams the whole content of key.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// PutObject replaces the content of key with size bytes from r.
	PutObject(ctx context.Context, key string, r io.Reader, size int64) error

	// PutDirectory creates a directory marker for key. Existing directories are kept.
	PutDirectory(ctx context.Context, key string) error

	// DeleteObject removes a file or an empty directory.
	DeleteObject(ctx context.Context, key string) error

	// ListObjects returns a cursor over the direct children of the directory key,
	// fetching pageSize entries per request.
	ListObjects(ctx context.Context, key string, pageSize int) (ListingCursor, error)
}

// RangeReader is implemented by backends advertising CapabilityRangedReads.
type RangeReader interface {
	// GetObjectRange streams the content of key starting at offset.
	GetObjectRange(ctx context.Context, key string, offset int64) (io.ReadCloser, error)
}

// ListingEntry is one raw entry of a directory listing.
type ListingEntry struct {
	Name string `json:"name"`
	// Type is either "file" or "directory"
	Type string `json:"type"`
	// Size is -1 when the store does not report one
	Size int64 `json:"size"`
	// LastModified is formatted as an HTTP-date
	LastModified string `json:"mtime"`
}

func (e *ListingEntry) IsDir() bool {
	return data.ParseFileType(e.Type) == data.FileTypeDirectory
}
