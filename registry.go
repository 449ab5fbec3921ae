package objfs

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/config"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
	"github.com/mwantia/objfs/log"
	"github.com/mwantia/objfs/mount"
)

// Identity names one open filesystem. Two URIs that resolve to the same
// authority and settings share the same FileSystem.
type Identity struct {
	Authority string
	Settings  config.Settings
}

func (id Identity) String() string {
	return config.Scheme + "://" + id.Settings.Account + "@" + id.Authority
}

// Registry holds at most one open FileSystem per Identity.
type Registry struct {
	options *RegistryOptions
	log     *log.Logger

	entries sync.Map // Identity -> *registryEntry
}

// registryEntry is stored before its filesystem is built. ready is closed
// once fs or err is set.
type registryEntry struct {
	ready chan struct{}
	fs    *FileSystem
	err   error
}

func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	options := newDefaultRegistryOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("objfs", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	return &Registry{
		options: options,
		log:     logger,
	}, nil
}

// identity parses uri and resolves its settings. The userinfo of the URI
// takes precedence over overrides, which take precedence over the
// environment and the settings file.
func (r *Registry) identity(rawURI string, overrides map[string]string) (Identity, *url.URL, error) {
	uri, err := url.Parse(rawURI)
	if err != nil {
		return Identity{}, nil, errors.MalformedAddress(err, rawURI)
	}
	if !strings.EqualFold(uri.Scheme, config.Scheme) {
		return Identity{}, nil, errors.InvalidArgument("parse uri", "uri '%s' does not use scheme '%s'", rawURI, config.Scheme)
	}

	contexts := []config.Context{}
	if uri.User != nil {
		contexts = append(contexts, config.MapContext{config.KeyAccount: uri.User.Username()})
	}
	contexts = append(contexts, config.MapContext(overrides))

	defaults, err := config.DefaultContexts(r.options.SettingsFile)
	if err != nil {
		return Identity{}, nil, err
	}
	contexts = append(contexts, defaults...)

	settings, err := config.Resolve(contexts...)
	if err != nil {
		return Identity{}, nil, err
	}
	settings, err = settings.WithEndpointHost(uri.Hostname(), uri.Port())
	if err != nil {
		return Identity{}, nil, err
	}

	return Identity{
		Authority: uri.Host,
		Settings:  settings,
	}, uri, nil
}

// CreateOrGet returns the open filesystem of uri, creating it if needed.
func (r *Registry) CreateOrGet(ctx context.Context, uri string, overrides map[string]string) (*FileSystem, error) {
	id, _, err := r.identity(uri, overrides)
	if err != nil {
		return nil, err
	}
	return r.open(ctx, uri, id, false)
}

// NewFileSystem creates the filesystem of uri and fails with ErrExist
// if it is already open.
func (r *Registry) NewFileSystem(ctx context.Context, uri string, overrides map[string]string) (*FileSystem, error) {
	id, _, err := r.identity(uri, overrides)
	if err != nil {
		return nil, err
	}
	return r.open(ctx, uri, id, true)
}

// GetFileSystem returns the open filesystem of uri without creating one.
func (r *Registry) GetFileSystem(ctx context.Context, uri string) (*FileSystem, error) {
	id, _, err := r.identity(uri, nil)
	if err != nil {
		return nil, err
	}

	value, exists := r.entries.Load(id)
	if !exists {
		return nil, errors.FileSystemNotFound(uri)
	}

	entry := value.(*registryEntry)
	select {
	case <-entry.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if entry.err != nil || !entry.fs.IsOpen() {
		return nil, errors.FileSystemNotFound(uri)
	}
	return entry.fs, nil
}

// GetPath opens the filesystem of uri if needed and returns the path
// component of uri.
func (r *Registry) GetPath(ctx context.Context, uri string) (data.ObjectPath, error) {
	id, parsed, err := r.identity(uri, nil)
	if err != nil {
		return data.ObjectPath{}, err
	}

	fs, err := r.open(ctx, uri, id, false)
	if err != nil {
		return data.ObjectPath{}, err
	}

	path := parsed.Path
	if path == "" {
		path = data.Separator
	}
	return fs.GetPath(path)
}

func (r *Registry) open(ctx context.Context, uri string, id Identity, exclusive bool) (*FileSystem, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := &registryEntry{ready: make(chan struct{})}
		value, loaded := r.entries.LoadOrStore(id, entry)
		if !loaded {
			fs, err := r.build(ctx, id)
			if err != nil {
				entry.err = err
				r.entries.CompareAndDelete(id, entry)
			} else {
				entry.fs = fs
			}
			close(entry.ready)
			return fs, err
		}

		existing := value.(*registryEntry)
		select {
		case <-existing.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if existing.err != nil {
			// A canceled builder leaves the identity to the next caller.
			if isContextError(existing.err) && ctx.Err() == nil {
				continue
			}
			return nil, existing.err
		}
		if !existing.fs.IsOpen() {
			r.entries.CompareAndDelete(id, existing)
			continue
		}
		if exclusive {
			return nil, errors.FileSystemExists(uri)
		}
		return existing.fs, nil
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *Registry) build(ctx context.Context, id Identity) (*FileSystem, error) {
	r.log.Debug("Registry: opening filesystem '%s' on '%s'", id, id.Settings.URL)

	storage, err := r.options.Factory(ctx, id.Settings)
	if err != nil {
		r.log.Error("Registry: failed to create backend for '%s' - %v", id, err)
		return nil, err
	}

	logger := r.log.Named(id.Settings.Account)
	opts := []mount.MountOption{
		mount.WithLogger(logger),
	}
	if r.options.StagingDir != "" {
		opts = append(opts, mount.WithStagingDir(r.options.StagingDir))
	}
	if r.options.PageSize > 0 {
		opts = append(opts, mount.WithPageSize(r.options.PageSize))
	}
	if r.options.ReadOnly {
		opts = append(opts, mount.AsReadOnly())
	}

	m, err := mount.NewMount(id.Settings.Account, storage, opts...)
	if err != nil {
		r.closeStorage(ctx, storage)
		return nil, err
	}
	if err := m.Mount(ctx); err != nil {
		r.closeStorage(ctx, storage)
		return nil, err
	}

	fs := newFileSystem(r, id, m, logger)
	r.log.Info("Registry: opened filesystem '%s' with backend '%s'", id, storage.Name())
	return fs, nil
}

func (r *Registry) closeStorage(ctx context.Context, storage backend.ObjectStorageBackend) {
	if err := storage.Close(ctx); err != nil {
		r.log.Warn("Registry: failed to close backend '%s' - %v", storage.Name(), err)
	}
}

// unregister drops fs, unless its identity has already been reopened.
func (r *Registry) unregister(id Identity, fs *FileSystem) {
	value, exists := r.entries.Load(id)
	if !exists {
		return
	}

	entry := value.(*registryEntry)
	select {
	case <-entry.ready:
	default:
		return
	}
	if entry.fs == fs {
		r.entries.CompareAndDelete(id, entry)
		r.log.Debug("Registry: unregistered filesystem '%s'", id)
	}
}

// Shutdown closes every open filesystem.
func (r *Registry) Shutdown(ctx context.Context) error {
	entries := []*registryEntry{}
	r.entries.Range(func(_, value any) bool {
		entries = append(entries, value.(*registryEntry))
		return true
	})

	errs := &errors.Errors{}
	for _, entry := range entries {
		select {
		case <-entry.ready:
		case <-ctx.Done():
			errs.Add(ctx.Err())
			return errs.Errors()
		}

		if entry.fs != nil {
			errs.Add(entry.fs.Close(ctx))
		}
	}
	return errs.Errors()
}
