package mount

import (
	"context"
	"io"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
	"github.com/mwantia/objfs/log"
)

// Mount binds one object store to the path model of one account.
// It turns paths into remote keys, translates backend failures and keeps
// track of every channel and directory stream opened through it.
type Mount struct {
	mu        sync.Mutex
	resources map[string]io.Closer
	closed    atomic.Bool

	Home      string
	Options   *MountOptions
	MountTime time.Time // When the mount was created.

	ObjectStorage backend.ObjectStorageBackend

	cache *metadataCache
	log   *log.Logger
}

func NewMount(home string, storage backend.ObjectStorageBackend, opts ...MountOption) (*Mount, error) {
	options := newDefaultMountOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if !storage.GetCapabilities().Contains(backend.CapabilityObjectStorage) {
		return nil, errors.BackendUnsupported(storage.Name(), string(backend.CapabilityObjectStorage))
	}

	return &Mount{
		resources:     make(map[string]io.Closer),
		Home:          home,
		Options:       options,
		MountTime:     time.Now(),
		ObjectStorage: storage,
		cache:         &metadataCache{},
		log:           options.Logger,
	}, nil
}

// Mount opens the backend. It must succeed before any other call.
func (m *Mount) Mount(ctx context.Context) error {
	m.log.Debug("Mount: opening backend '%s' for home '%s'", m.ObjectStorage.Name(), m.Home)

	if err := m.ObjectStorage.Open(ctx); err != nil {
		m.log.Error("Mount: failed to open backend '%s' - %v", m.ObjectStorage.Name(), err)
		return translate(err, "mount", m.Home)
	}
	return nil
}

// Close closes every tracked channel and stream before closing the backend.
// Uploads of open write channels happen here. Close is idempotent.
func (m *Mount) Close(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.mu.Lock()
	resources := slices.Collect(maps.Values(m.resources))
	m.mu.Unlock()

	m.log.Debug("Close: closing %d open resources for home '%s'", len(resources), m.Home)

	errs := errors.Errors{}
	for _, resource := range resources {
		if closer, ok := resource.(contextCloser); ok {
			errs.Add(closer.closeWith(ctx))
			continue
		}
		errs.Add(resource.Close())
	}

	if err := m.ObjectStorage.Close(ctx); err != nil {
		m.log.Error("Close: failed to close backend '%s' - %v", m.ObjectStorage.Name(), err)
		errs.Add(translate(err, "unmount", m.Home))
	}
	m.cache.Clear()

	return errs.Errors()
}

// contextCloser is a resource whose close reaches the backend.
type contextCloser interface {
	closeWith(ctx context.Context) error
}

func (m *Mount) IsOpen() bool {
	return !m.closed.Load()
}

// OpenResources returns the number of channels and streams not yet closed.
func (m *Mount) OpenResources() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.resources)
}

func (m *Mount) IsReadOnly() bool {
	return m.Options.ReadOnly
}

// RealKey maps p onto the remote key it names. Relative paths resolve
// against the root and the home alias expands to the mount's home.
func (m *Mount) RealKey(p data.ObjectPath) string {
	if p.Home() == "" {
		p = p.WithHome(m.Home)
	}
	return backend.CleanKey(p.ToRealPath().String())
}

func (m *Mount) track(id string, resource io.Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resources[id] = resource
}

func (m *Mount) untrack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.resources, id)
}

func (m *Mount) checkOpen(op string) error {
	if m.closed.Load() {
		return errors.Closed(op, m.Home)
	}
	return nil
}

func (m *Mount) checkWritable(op, key string) error {
	if err := m.checkOpen(op); err != nil {
		return err
	}
	if m.Options.ReadOnly {
		return errors.ReadOnly(op, key)
	}
	return nil
}

// head asks the backend for the current attributes of key and caches them.
func (m *Mount) head(ctx context.Context, key string) (*data.FileStat, error) {
	m.log.Debug("Head: requesting attributes of '%s'", key)

	stat, err := m.ObjectStorage.HeadObject(ctx, key)
	if err != nil {
		return nil, translate(err, "head", key)
	}

	m.cache.Store(key, stat)
	return stat, nil
}

// Stat returns the basic attributes of p, served from the metadata cache
// when the key was seen before.
func (m *Mount) Stat(ctx context.Context, p data.ObjectPath) (*data.FileStat, error) {
	if err := m.checkOpen("stat"); err != nil {
		return nil, err
	}

	return m.cache.Load(ctx, m.RealKey(p), m.head)
}

// Refresh drops any cached attributes of p and fetches them again.
func (m *Mount) Refresh(ctx context.Context, p data.ObjectPath) (*data.FileStat, error) {
	if err := m.checkOpen("stat"); err != nil {
		return nil, err
	}

	key := m.RealKey(p)
	m.cache.Invalidate(key)
	return m.cache.Load(ctx, key, m.head)
}

// CheckAccess verifies that p exists and permits every requested mode.
// Execute access is never granted on an object store.
func (m *Mount) CheckAccess(ctx context.Context, p data.ObjectPath, mode data.AccessMode) error {
	if err := m.checkOpen("check access"); err != nil {
		return err
	}

	key := m.RealKey(p)
	if mode.Has(data.AccessExecute) {
		return errors.AccessDenied(nil, "check access", key)
	}

	if _, err := m.head(ctx, key); err != nil {
		return err
	}

	if mode.Has(data.AccessWrite) && m.Options.ReadOnly {
		return errors.ReadOnly("check access", key)
	}
	return nil
}

// CreateDirectory creates p and any missing parents. It fails with
// ErrExist when p already names an object.
func (m *Mount) CreateDirectory(ctx context.Context, p data.ObjectPath) error {
	key := m.RealKey(p)
	if err := m.checkWritable("create directory", key); err != nil {
		return err
	}

	if _, err := m.head(ctx, key); err == nil {
		return errors.Exist(nil, "create directory", key)
	} else if !errors.Is(err, errors.ErrNotExist) {
		return err
	}

	m.log.Debug("CreateDirectory: creating '%s'", key)

	if err := m.ObjectStorage.PutDirectory(ctx, key); err != nil {
		return translate(err, "create directory", key)
	}

	m.cache.Invalidate(key)
	return nil
}

// Delete removes p. Directories must be empty unless recursive is set.
func (m *Mount) Delete(ctx context.Context, p data.ObjectPath, recursive bool) error {
	key := m.RealKey(p)
	if err := m.checkWritable("delete", key); err != nil {
		return err
	}

	return m.delete(ctx, key, recursive)
}

func (m *Mount) delete(ctx context.Context, key string, recursive bool) error {
	m.log.Debug("Delete: removing '%s' (recursive=%t)", key, recursive)

	if recursive {
		stat, err := m.head(ctx, key)
		if err != nil {
			return err
		}
		if stat.IsDir() {
			if err := m.deleteChildren(ctx, key); err != nil {
				return err
			}
		}
	}

	defer m.cache.InvalidateTree(key)
	if err := m.ObjectStorage.DeleteObject(ctx, key); err != nil {
		return translate(err, "delete", key)
	}
	return nil
}

func (m *Mount) deleteChildren(ctx context.Context, key string) error {
	cursor, err := m.ObjectStorage.ListObjects(ctx, key, m.Options.PageSize)
	if err != nil {
		return translate(err, "delete", key)
	}
	defer cursor.Close()

	prefix := backend.ChildPrefix(key)
	for {
		entry, err := cursor.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return translate(err, "delete", key)
		}

		if err := m.delete(ctx, prefix+entry.Name, entry.IsDir()); err != nil {
			return err
		}
	}
}

// Copy copies the object at src to dst. Directories are copied without
// their content. An existing dst is replaced only if replace is set.
func (m *Mount) Copy(ctx context.Context, src, dst data.ObjectPath, replace bool) error {
	srcKey, dstKey := m.RealKey(src), m.RealKey(dst)
	if err := m.checkWritable("copy", dstKey); err != nil {
		return err
	}

	return m.copy(ctx, srcKey, dstKey, replace)
}

func (m *Mount) copy(ctx context.Context, srcKey, dstKey string, replace bool) error {
	stat, err := m.head(ctx, srcKey)
	if err != nil {
		return err
	}
	if srcKey == dstKey {
		return nil
	}

	if target, err := m.head(ctx, dstKey); err == nil {
		if !replace {
			return errors.Exist(nil, "copy", dstKey)
		}
		if target.IsDir() {
			if err := m.delete(ctx, dstKey, false); err != nil {
				return err
			}
		}
	} else if !errors.Is(err, errors.ErrNotExist) {
		return err
	}

	m.log.Debug("Copy: copying '%s' to '%s' (%s)", srcKey, dstKey, stat.HumanSize())
	defer m.cache.Invalidate(dstKey)

	if stat.IsDir() {
		if err := m.ObjectStorage.PutDirectory(ctx, dstKey); err != nil {
			return translate(err, "copy", dstKey)
		}
		return nil
	}

	body, err := m.ObjectStorage.GetObject(ctx, srcKey)
	if err != nil {
		return translate(err, "copy", srcKey)
	}
	defer body.Close()

	if err := m.ObjectStorage.PutObject(ctx, dstKey, body, stat.Size); err != nil {
		return translate(err, "copy", dstKey)
	}
	return nil
}

// Move copies src to dst and removes src afterwards.
// Directories can only be moved while they are empty.
func (m *Mount) Move(ctx context.Context, src, dst data.ObjectPath, replace bool) error {
	srcKey, dstKey := m.RealKey(src), m.RealKey(dst)
	if err := m.checkWritable("move", dstKey); err != nil {
		return err
	}
	if srcKey == dstKey {
		_, err := m.head(ctx, srcKey)
		return err
	}

	stat, err := m.head(ctx, srcKey)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		empty, err := m.isEmpty(ctx, srcKey)
		if err != nil {
			return err
		}
		if !empty {
			return errors.DirectoryNotEmpty("move", srcKey)
		}
	}

	if err := m.copy(ctx, srcKey, dstKey, replace); err != nil {
		return err
	}
	return m.delete(ctx, srcKey, false)
}

func (m *Mount) isEmpty(ctx context.Context, key string) (bool, error) {
	cursor, err := m.ObjectStorage.ListObjects(ctx, key, 1)
	if err != nil {
		return false, translate(err, "list", key)
	}
	defer cursor.Close()

	if _, err := cursor.Next(); err == io.EOF {
		return true, nil
	} else if err != nil {
		return false, translate(err, "list", key)
	}
	return false, nil
}

// NewInputStream streams the whole content of p.
func (m *Mount) NewInputStream(ctx context.Context, p data.ObjectPath) (io.ReadCloser, error) {
	key := m.RealKey(p)
	if err := m.checkOpen("open"); err != nil {
		return nil, err
	}

	stat, err := m.head(ctx, key)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, errors.IsDirectory("open", key)
	}

	m.log.Debug("NewInputStream: streaming '%s' (%s)", key, stat.HumanSize())

	body, err := m.ObjectStorage.GetObject(ctx, key)
	if err != nil {
		return nil, translate(err, "open", key)
	}
	return body, nil
}

// NewOutputStream opens a staging channel for writing p. Without options the
// object is created or truncated.
func (m *Mount) NewOutputStream(ctx context.Context, p data.ObjectPath, options data.OpenOption) (io.WriteCloser, error) {
	if options == 0 {
		options = data.OptionTruncateExisting
	}
	options |= data.OptionWrite

	return m.NewChannel(ctx, p, options)
}
