package mount

import (
	"context"
	"io"
	"iter"
	"sync/atomic"
	"time"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
	"github.com/mwantia/objfs/log"
)

// DirectoryFilter decides whether an entry is yielded by a DirectoryStream.
type DirectoryFilter func(data.ObjectPath) bool

// AcceptAll is the filter used when none is given.
func AcceptAll(data.ObjectPath) bool {
	return true
}

// DirectoryStream walks the children of one directory exactly once.
// Pages are requested from the backend while the iterator advances.
type DirectoryStream struct {
	id  string
	mnt *Mount
	log *log.Logger

	dir    data.ObjectPath
	key    string
	cursor backend.ListingCursor
	filter DirectoryFilter

	consumed atomic.Bool
	closed   atomic.Bool
}

// NewDirectoryStream lists dir. A nil filter accepts every entry.
func (m *Mount) NewDirectoryStream(ctx context.Context, dir data.ObjectPath, filter DirectoryFilter) (*DirectoryStream, error) {
	key := m.RealKey(dir)
	if err := m.checkOpen("list"); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = AcceptAll
	}

	m.log.Debug("NewDirectoryStream: listing '%s' with page size %d", key, m.Options.PageSize)

	cursor, err := m.ObjectStorage.ListObjects(ctx, key, m.Options.PageSize)
	if err != nil {
		return nil, translate(err, "list", key)
	}

	stream := &DirectoryStream{
		id:     data.NewID(),
		mnt:    m,
		log:    m.log,
		dir:    dir,
		key:    key,
		cursor: cursor,
		filter: filter,
	}
	m.track(stream.id, stream)
	return stream, nil
}

// Iterator returns the sequence of child paths, each being the directory
// resolved against the entry name. It can be obtained only once.
func (ds *DirectoryStream) Iterator() (iter.Seq2[data.ObjectPath, error], error) {
	if ds.closed.Load() {
		return nil, errors.IllegalState("iterator", "directory stream is closed")
	}
	if !ds.consumed.CompareAndSwap(false, true) {
		return nil, errors.IllegalState("iterator", "iterator already obtained")
	}

	return func(yield func(data.ObjectPath, error) bool) {
		for !ds.closed.Load() {
			entry, err := ds.cursor.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				if ds.closed.Load() {
					return
				}
				yield(data.ObjectPath{}, translate(err, "list", ds.key))
				return
			}

			child, err := ds.dir.ResolvePath(entry.Name)
			if err != nil {
				yield(data.ObjectPath{}, err)
				return
			}

			ds.prime(entry)
			if !ds.filter(child) {
				continue
			}
			if !yield(child, nil) {
				return
			}
		}
	}, nil
}

// prime stores the attributes reported by the listing in the metadata cache.
func (ds *DirectoryStream) prime(entry *backend.ListingEntry) {
	key := backend.ChildPrefix(ds.key) + entry.Name

	modTime, err := backend.ParseHTTPDate(entry.LastModified)
	if err != nil {
		ds.log.Warn("Iterator: unparseable last-modified '%s' for '%s', using epoch - %v", entry.LastModified, key, err)
		modTime = time.Unix(0, 0).UTC()
	}

	stat := &data.FileStat{
		Key:     key,
		Type:    data.ParseFileType(entry.Type),
		Size:    entry.Size,
		ModTime: modTime,
	}
	if stat.IsDir() {
		stat.ContentType = data.ContentTypeDirectory
	} else {
		stat.ContentType = data.ContentTypeOf(key)
	}

	ds.mnt.cache.Store(key, stat)
}

// Close releases the listing cursor. It is idempotent.
func (ds *DirectoryStream) Close() error {
	if !ds.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer ds.mnt.untrack(ds.id)

	if err := ds.cursor.Close(); err != nil {
		ds.log.Warn("Close: failed to release listing of '%s' - %v", ds.key, err)
		return translate(err, "close", ds.key)
	}
	return nil
}
