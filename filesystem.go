package objfs

import (
	"context"
	"io"
	"math"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/mwantia/objfs/config"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
	"github.com/mwantia/objfs/log"
	"github.com/mwantia/objfs/mount"
)

// BasicAttributeView is the only attribute view objfs provides.
const BasicAttributeView = "basic"

// FileSystem is one open filesystem of a Registry. It delegates every
// remote operation to its mount.
type FileSystem struct {
	ID       uuid.UUID
	Identity Identity

	registry *Registry
	mount    *mount.Mount
	log      *log.Logger

	closed atomic.Bool
}

// FileStore describes the object store behind a filesystem. Object stores
// do not report capacity, so all space values are unbounded.
type FileStore struct {
	Name     string
	Type     string
	ReadOnly bool

	TotalSpace       int64
	UsableSpace      int64
	UnallocatedSpace int64
}

func newFileSystem(registry *Registry, id Identity, m *mount.Mount, logger *log.Logger) *FileSystem {
	return &FileSystem{
		ID:       uuid.Must(uuid.NewV7()),
		Identity: id,
		registry: registry,
		mount:    m,
		log:      logger,
	}
}

// Close closes all channels and streams of the filesystem, then the backend,
// and removes the filesystem from its registry. Close is idempotent.
func (fs *FileSystem) Close(ctx context.Context) error {
	if !fs.closed.CompareAndSwap(false, true) {
		return nil
	}

	fs.log.Debug("FileSystem: closing '%s' (%s)", fs.Identity, fs.ID)

	err := fs.mount.Close(ctx)
	fs.registry.unregister(fs.Identity, fs)
	return err
}

func (fs *FileSystem) IsOpen() bool {
	return !fs.closed.Load()
}

func (fs *FileSystem) IsReadOnly() bool {
	return fs.mount.IsReadOnly()
}

func (fs *FileSystem) Separator() string {
	return data.Separator
}

func (fs *FileSystem) RootDirectories() []data.ObjectPath {
	return []data.ObjectPath{data.MustParsePath(data.Separator).WithHome(fs.Identity.Settings.Account)}
}

// GetPath builds a path whose home alias expands to the account of fs.
func (fs *FileSystem) GetPath(first string, more ...string) (data.ObjectPath, error) {
	return data.ParsePathWithHome(fs.Identity.Settings.Account, first, more...)
}

// PathMatcher compiles "glob:<pattern>" or "regex:<pattern>" into a filter
// matching the string form of a path. Glob wildcards do not cross "/",
// "**" does.
func (fs *FileSystem) PathMatcher(syntaxAndPattern string) (mount.DirectoryFilter, error) {
	syntax, pattern, found := strings.Cut(syntaxAndPattern, ":")
	if !found {
		return nil, errors.InvalidArgument("path matcher", "expected 'syntax:pattern', got '%s'", syntaxAndPattern)
	}

	switch strings.ToLower(syntax) {
	case "glob":
		g, err := glob.Compile(pattern, data.SeparatorChar)
		if err != nil {
			return nil, errors.InvalidArgument("path matcher", "invalid glob '%s': %v", pattern, err)
		}
		return func(p data.ObjectPath) bool {
			return g.Match(p.String())
		}, nil
	case "regex":
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, errors.InvalidArgument("path matcher", "invalid regex '%s': %v", pattern, err)
		}
		return func(p data.ObjectPath) bool {
			return re.MatchString(p.String())
		}, nil
	}

	return nil, errors.Unsupported("path matcher syntax " + syntax)
}

func (fs *FileSystem) FileStore() FileStore {
	return FileStore{
		Name:     fs.Identity.String(),
		Type:     fs.mount.ObjectStorage.Name(),
		ReadOnly: fs.IsReadOnly(),

		TotalSpace:       math.MaxInt64,
		UsableSpace:      math.MaxInt64,
		UnallocatedSpace: math.MaxInt64,
	}
}

func (fs *FileSystem) SupportedAttributeViews() []string {
	return []string{BasicAttributeView}
}

// PathURI returns the URI addressing p on this filesystem.
func (fs *FileSystem) PathURI(p data.ObjectPath) string {
	uri := &url.URL{
		Scheme: config.Scheme,
		Host:   fs.Identity.Authority,
		Path:   fs.mount.RealKey(p),
	}
	if uri.Host != "" {
		uri.User = url.User(fs.Identity.Settings.Account)
	}
	return uri.String()
}

func (fs *FileSystem) Stat(ctx context.Context, p data.ObjectPath) (*data.FileStat, error) {
	return fs.mount.Stat(ctx, p)
}

// ReadAttributes returns the attributes of view, which must be "basic".
func (fs *FileSystem) ReadAttributes(ctx context.Context, p data.ObjectPath, view string) (*data.FileStat, error) {
	if view != "" && view != BasicAttributeView {
		return nil, errors.Unsupported("attribute view " + view)
	}
	return fs.mount.Stat(ctx, p)
}

func (fs *FileSystem) CheckAccess(ctx context.Context, p data.ObjectPath, mode data.AccessMode) error {
	return fs.mount.CheckAccess(ctx, p, mode)
}

func (fs *FileSystem) NewDirectoryStream(ctx context.Context, dir data.ObjectPath, filter mount.DirectoryFilter) (*mount.DirectoryStream, error) {
	return fs.mount.NewDirectoryStream(ctx, dir, filter)
}

func (fs *FileSystem) NewByteChannel(ctx context.Context, p data.ObjectPath, options data.OpenOption) (mount.Channel, error) {
	return fs.mount.NewChannel(ctx, p, options)
}

func (fs *FileSystem) NewInputStream(ctx context.Context, p data.ObjectPath) (io.ReadCloser, error) {
	return fs.mount.NewInputStream(ctx, p)
}

func (fs *FileSystem) NewOutputStream(ctx context.Context, p data.ObjectPath, options data.OpenOption) (io.WriteCloser, error) {
	return fs.mount.NewOutputStream(ctx, p, options)
}

func (fs *FileSystem) CreateDirectory(ctx context.Context, p data.ObjectPath) error {
	return fs.mount.CreateDirectory(ctx, p)
}

func (fs *FileSystem) Delete(ctx context.Context, p data.ObjectPath, recursive bool) error {
	return fs.mount.Delete(ctx, p, recursive)
}

func (fs *FileSystem) Copy(ctx context.Context, src, dst data.ObjectPath, replace bool) error {
	return fs.mount.Copy(ctx, src, dst, replace)
}

func (fs *FileSystem) Move(ctx context.Context, src, dst data.ObjectPath, replace bool) error {
	return fs.mount.Move(ctx, src, dst, replace)
}

func (fs *FileSystem) NewWatchService() error {
	return errors.Unsupported("watch service")
}

func (fs *FileSystem) CreateSymbolicLink(ctx context.Context, link, target data.ObjectPath) error {
	return errors.Unsupported("create symbolic link")
}

func (fs *FileSystem) ReadSymbolicLink(ctx context.Context, link data.ObjectPath) (data.ObjectPath, error) {
	return data.ObjectPath{}, errors.Unsupported("read symbolic link")
}
