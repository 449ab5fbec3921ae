package consul

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
)

// lookup resolves key to its file pair, or reports whether it is a directory.
func (cb *ConsulBackend) lookup(ctx context.Context, key string) (*api.KVPair, bool, error) {
	if backend.CleanKey(key) == "/" {
		return nil, true, nil
	}

	pair, _, err := cb.kv.Get(cb.buildKey(key), cb.query(ctx))
	if err != nil {
		return nil, false, err
	}
	if pair != nil {
		return pair, false, nil
	}

	marker, _, err := cb.kv.Get(cb.directoryKey(key), cb.query(ctx))
	if err != nil {
		return nil, false, err
	}
	if marker != nil {
		return marker, true, nil
	}

	// Keys written by other clients may imply a directory without a marker.
	keys, _, err := cb.kv.Keys(cb.directoryKey(key), "/", cb.query(ctx))
	if err != nil {
		return nil, false, err
	}
	return nil, len(keys) > 0, nil
}

func (cb *ConsulBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	key = backend.CleanKey(key)

	pair, isDir, err := cb.lookup(ctx, key)
	if err != nil {
		return nil, errors.IOFailure(err, "head", key)
	}

	switch {
	case isDir:
		stat := &data.FileStat{
			Key:         key,
			Type:        data.FileTypeDirectory,
			ContentType: data.ContentTypeDirectory,
		}
		if pair != nil {
			stat.ModTime = modTime(pair)
		}
		return stat, nil
	case pair == nil:
		return nil, errors.NotExist(nil, "head", key)
	default:
		return &data.FileStat{
			Key:         key,
			Type:        data.FileTypeFile,
			Size:        int64(len(pair.Value)),
			ModTime:     modTime(pair),
			ContentType: data.ContentTypeOf(key),
			ETag:        fmt.Sprintf("%d", pair.ModifyIndex),
		}, nil
	}
}

func (cb *ConsulBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	key = backend.CleanKey(key)

	pair, isDir, err := cb.lookup(ctx, key)
	if err != nil {
		return nil, errors.IOFailure(err, "get", key)
	}
	if isDir {
		return nil, errors.IsDirectory("get", key)
	}
	if pair == nil {
		return nil, errors.NotExist(nil, "get", key)
	}

	return io.NopCloser(bytes.NewReader(pair.Value)), nil
}

func (cb *ConsulBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64) error {
	key = backend.CleanKey(key)

	if !cb.GetCapabilities().Accepts(size) {
		return errors.IOFailure(fmt.Errorf("object of %d bytes exceeds the consul value limit", size), "put", key)
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return errors.IOFailure(err, "put", key)
	}

	_, isDir, err := cb.lookup(ctx, key)
	if err != nil {
		return errors.IOFailure(err, "put", key)
	}
	if isDir {
		return errors.IsDirectory("put", key)
	}
	if err := cb.createParents(ctx, key); err != nil {
		return err
	}

	pair := &api.KVPair{
		Key:   cb.buildKey(key),
		Value: content,
		Flags: uint64(time.Now().UnixNano()),
	}
	if _, err := cb.kv.Put(pair, cb.write(ctx)); err != nil {
		return errors.IOFailure(err, "put", key)
	}

	return nil
}

func (cb *ConsulBackend) PutDirectory(ctx context.Context, key string) error {
	key = backend.CleanKey(key)

	pair, isDir, err := cb.lookup(ctx, key)
	if err != nil {
		return errors.IOFailure(err, "put directory", key)
	}
	if pair != nil && !isDir {
		return errors.Exist(nil, "put directory", key)
	}
	if isDir {
		return nil
	}

	if err := cb.createParents(ctx, key); err != nil {
		return err
	}
	return cb.putMarker(ctx, key)
}

func (cb *ConsulBackend) putMarker(ctx context.Context, key string) error {
	marker := &api.KVPair{
		Key:   cb.directoryKey(key),
		Flags: uint64(time.Now().UnixNano()),
	}
	if _, err := cb.kv.Put(marker, cb.write(ctx)); err != nil {
		return errors.IOFailure(err, "put directory", key)
	}
	return nil
}

func (cb *ConsulBackend) createParents(ctx context.Context, key string) error {
	for _, parent := range backend.ParentKeys(key) {
		pair, isDir, err := cb.lookup(ctx, parent)
		if err != nil {
			return errors.IOFailure(err, "put", parent)
		}
		if pair != nil && !isDir {
			return errors.NotDirectory("put", parent)
		}
		if pair == nil {
			if err := cb.putMarker(ctx, parent); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cb *ConsulBackend) DeleteObject(ctx context.Context, key string) error {
	key = backend.CleanKey(key)
	if key == "/" {
		return errors.AccessDenied(nil, "delete", key)
	}

	pair, isDir, err := cb.lookup(ctx, key)
	if err != nil {
		return errors.IOFailure(err, "delete", key)
	}

	if !isDir {
		if pair == nil {
			return errors.NotExist(nil, "delete", key)
		}
		if _, err := cb.kv.Delete(cb.buildKey(key), cb.write(ctx)); err != nil {
			return errors.IOFailure(err, "delete", key)
		}
		return nil
	}

	children, err := cb.childKeys(ctx, key)
	if err != nil {
		return errors.IOFailure(err, "delete", key)
	}
	if len(children) > 0 {
		return errors.DirectoryNotEmpty("delete", key)
	}

	if _, err := cb.kv.Delete(cb.directoryKey(key), cb.write(ctx)); err != nil {
		return errors.IOFailure(err, "delete", key)
	}
	return nil
}

// childKeys returns the KV keys of the direct children of the directory key,
// sorted by child name.
func (cb *ConsulBackend) childKeys(ctx context.Context, key string) ([]string, error) {
	prefix := cb.directoryKey(key)

	keys, _, err := cb.kv.Keys(prefix, "/", cb.query(ctx))
	if err != nil {
		return nil, err
	}

	children := make([]string, 0, len(keys))
	for _, consulKey := range keys {
		if consulKey != prefix {
			children = append(children, consulKey)
		}
	}

	slices.SortFunc(children, func(a, b string) int {
		return strings.Compare(childName(prefix, a), childName(prefix, b))
	})
	return children, nil
}

func (cb *ConsulBackend) ListObjects(ctx context.Context, key string, pageSize int) (backend.ListingCursor, error) {
	key = backend.CleanKey(key)

	pair, isDir, err := cb.lookup(ctx, key)
	if err != nil {
		return nil, errors.IOFailure(err, "list", key)
	}
	if !isDir {
		if pair == nil {
			return nil, errors.NotExist(nil, "list", key)
		}
		return nil, errors.NotDirectory("list", key)
	}

	// Consul lists all child keys in one request, details are fetched per page.
	children, err := cb.childKeys(ctx, key)
	if err != nil {
		return nil, errors.IOFailure(err, "list", key)
	}
	prefix := cb.directoryKey(key)

	return backend.NewPagedCursor(ctx, pageSize, func(ctx context.Context, marker string, limit int) ([]*backend.ListingEntry, error) {
		start, _ := slices.BinarySearchFunc(children, marker, func(consulKey, target string) int {
			return strings.Compare(childName(prefix, consulKey), target)
		})
		for start < len(children) && childName(prefix, children[start]) <= marker {
			start++
		}

		entries := make([]*backend.ListingEntry, 0, limit)
		for _, consulKey := range children[start:] {
			if len(entries) == limit {
				break
			}
			entry, err := cb.entry(ctx, prefix, consulKey)
			if err != nil {
				return nil, errors.IOFailure(err, "list", key)
			}
			if entry != nil {
				entries = append(entries, entry)
			}
		}
		return entries, nil
	}), nil
}

func (cb *ConsulBackend) entry(ctx context.Context, prefix, consulKey string) (*backend.ListingEntry, error) {
	name := childName(prefix, consulKey)
	if strings.HasSuffix(consulKey, "/") {
		entry := &backend.ListingEntry{
			Name: name,
			Type: data.FileTypeDirectory.String(),
			Size: 0,
		}
		if marker, _, err := cb.kv.Get(consulKey, cb.query(ctx)); err == nil && marker != nil {
			entry.LastModified = backend.HTTPDate(modTime(marker))
		}
		return entry, nil
	}

	pair, _, err := cb.kv.Get(consulKey, cb.query(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		// Deleted between the key listing and this page.
		return nil, nil
	}

	return &backend.ListingEntry{
		Name:         name,
		Type:         data.FileTypeFile.String(),
		Size:         int64(len(pair.Value)),
		LastModified: backend.HTTPDate(modTime(pair)),
	}, nil
}

func childName(prefix, consulKey string) string {
	return strings.TrimSuffix(strings.TrimPrefix(consulKey, prefix), "/")
}

func modTime(pair *api.KVPair) time.Time {
	if pair.Flags == 0 {
		return time.Unix(0, 0)
	}
	return time.Unix(0, int64(pair.Flags))
}
