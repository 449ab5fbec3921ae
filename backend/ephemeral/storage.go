package ephemeral

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
)

func (eb *EphemeralBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	key = backend.CleanKey(key)
	obj, exists := eb.objects.Get(key)
	if !exists {
		return nil, errors.NotExist(nil, "head", key)
	}

	return obj.stat(key), nil
}

func (eb *EphemeralBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	return eb.GetObjectRange(ctx, key, 0)
}

func (eb *EphemeralBackend) GetObjectRange(ctx context.Context, key string, offset int64) (io.ReadCloser, error) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	key = backend.CleanKey(key)
	obj, exists := eb.objects.Get(key)
	if !exists {
		return nil, errors.NotExist(nil, "get", key)
	}
	if obj.fileType == data.FileTypeDirectory {
		return nil, errors.IsDirectory("get", key)
	}

	offset = min(max(offset, 0), int64(len(obj.content)))
	// Stored slices are never modified in place, PutObject swaps them.
	return io.NopCloser(bytes.NewReader(obj.content[offset:])), nil
}

func (eb *EphemeralBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64) error {
	var buffer bytes.Buffer
	if size > 0 {
		buffer.Grow(int(size))
	}
	if _, err := io.Copy(&buffer, r); err != nil {
		return errors.IOFailure(err, "put", key)
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	key = backend.CleanKey(key)
	if existing, exists := eb.objects.Get(key); exists && existing.fileType == data.FileTypeDirectory {
		return errors.IsDirectory("put", key)
	}
	if err := eb.createParentsUnsafe(key); err != nil {
		return err
	}

	content := buffer.Bytes()
	eb.objects.Set(key, &object{
		fileType:    data.FileTypeFile,
		content:     content,
		contentType: data.ContentTypeOf(key),
		etag:        backend.ETag(content),
		modTime:     eb.now(),
	})

	return nil
}

func (eb *EphemeralBackend) PutDirectory(ctx context.Context, key string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	key = backend.CleanKey(key)
	if existing, exists := eb.objects.Get(key); exists {
		if existing.fileType != data.FileTypeDirectory {
			return errors.Exist(nil, "put directory", key)
		}
		return nil
	}
	if err := eb.createParentsUnsafe(key); err != nil {
		return err
	}

	eb.objects.Set(key, eb.newDirectory())
	return nil
}

func (eb *EphemeralBackend) createParentsUnsafe(key string) error {
	for _, parent := range backend.ParentKeys(key) {
		existing, exists := eb.objects.Get(parent)
		if !exists {
			eb.objects.Set(parent, eb.newDirectory())
			continue
		}
		if existing.fileType != data.FileTypeDirectory {
			return errors.NotDirectory("put", parent)
		}
	}
	return nil
}

func (eb *EphemeralBackend) DeleteObject(ctx context.Context, key string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	key = backend.CleanKey(key)
	obj, exists := eb.objects.Get(key)
	if !exists {
		return errors.NotExist(nil, "delete", key)
	}
	if obj.fileType == data.FileTypeDirectory {
		if key == "/" {
			return errors.AccessDenied(nil, "delete", key)
		}
		if eb.hasChildrenUnsafe(key) {
			return errors.DirectoryNotEmpty("delete", key)
		}
	}

	eb.objects.Delete(key)
	return nil
}

func (eb *EphemeralBackend) hasChildrenUnsafe(key string) bool {
	prefix := backend.ChildPrefix(key)
	found := false
	eb.objects.Ascend(prefix, func(child string, _ *object) bool {
		found = strings.HasPrefix(child, prefix) && child != prefix
		return false
	})
	return found
}

func (eb *EphemeralBackend) ListObjects(ctx context.Context, key string, pageSize int) (backend.ListingCursor, error) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	key = backend.CleanKey(key)
	obj, exists := eb.objects.Get(key)
	if !exists {
		return nil, errors.NotExist(nil, "list", key)
	}
	if obj.fileType != data.FileTypeDirectory {
		return nil, errors.NotDirectory("list", key)
	}

	return backend.NewPagedCursor(ctx, pageSize, func(_ context.Context, marker string, limit int) ([]*backend.ListingEntry, error) {
		return eb.listPage(key, marker, limit), nil
	}), nil
}

// listPage returns up to limit direct children of key named after marker.
func (eb *EphemeralBackend) listPage(key, marker string, limit int) []*backend.ListingEntry {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	prefix := backend.ChildPrefix(key)
	pivot := prefix + marker
	entries := make([]*backend.ListingEntry, 0, limit)

	eb.objects.Ascend(pivot, func(child string, obj *object) bool {
		if !strings.HasPrefix(child, prefix) {
			return false
		}
		name := strings.TrimPrefix(child, prefix)
		if name == "" || name <= marker || strings.Contains(name, "/") {
			return true
		}

		entries = append(entries, obj.entry(name))
		return len(entries) < limit
	})

	return entries
}

func (o *object) stat(key string) *data.FileStat {
	size := int64(len(o.content))
	return &data.FileStat{
		Key:         key,
		Type:        o.fileType,
		Size:        size,
		ModTime:     o.modTime,
		ContentType: o.contentType,
		ETag:        o.etag,
	}
}

func (o *object) entry(name string) *backend.ListingEntry {
	return &backend.ListingEntry{
		Name:         name,
		Type:         o.fileType.String(),
		Size:         int64(len(o.content)),
		LastModified: backend.HTTPDate(o.modTime),
	}
}
