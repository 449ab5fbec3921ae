package objfs_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mwantia/objfs"
	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/backend/ephemeral"
	"github.com/mwantia/objfs/config"
	"github.com/mwantia/objfs/data"
	objerrors "github.com/mwantia/objfs/data/errors"
	"github.com/mwantia/objfs/log"
)

const rootURI = "objfs:///"

func settingsFor(account string) map[string]string {
	return map[string]string{
		config.KeyURL:     "memory://",
		config.KeyAccount: account,
	}
}

// newTestRegistry returns a registry whose backends are ephemeral and counted.
func newTestRegistry(tst *testing.T, opts ...objfs.RegistryOption) (*objfs.Registry, *atomic.Int32) {
	builds := &atomic.Int32{}
	factory := func(ctx context.Context, settings config.Settings) (backend.ObjectStorageBackend, error) {
		builds.Add(1)
		return ephemeral.NewEphemeralBackend(), nil
	}

	defaults := []objfs.RegistryOption{
		objfs.WithSettingsFile(""),
		objfs.WithLogger(log.Discard()),
		objfs.WithStagingDir(tst.TempDir()),
		objfs.WithBackendFactory(factory),
	}

	registry, err := objfs.NewRegistry(append(defaults, opts...)...)
	if err != nil {
		tst.Fatalf("Failed to create registry: %v", err)
	}
	tst.Cleanup(func() {
		_ = registry.Shutdown(context.Background())
	})
	return registry, builds
}

func TestRegistry_CreateOrGet(t *testing.T) {
	ctx := t.Context()
	registry, builds := newTestRegistry(t)

	first, err := registry.CreateOrGet(ctx, rootURI, settingsFor("alice"))
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}
	second, err := registry.CreateOrGet(ctx, rootURI, settingsFor("alice"))
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected the same filesystem for the same identity")
	}
	if builds.Load() != 1 {
		t.Errorf("Expected 1 backend, got %d", builds.Load())
	}

	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if first.IsOpen() {
		t.Errorf("Expected filesystem to be closed")
	}
	if err := first.Close(ctx); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}

	third, err := registry.CreateOrGet(ctx, rootURI, settingsFor("alice"))
	if err != nil {
		t.Fatalf("CreateOrGet after close failed: %v", err)
	}
	if third == first || !third.IsOpen() {
		t.Errorf("Expected a new open filesystem after close")
	}
	if builds.Load() != 2 {
		t.Errorf("Expected 2 backends, got %d", builds.Load())
	}
}

func TestRegistry_NewFileSystem(t *testing.T) {
	ctx := t.Context()
	registry, _ := newTestRegistry(t)

	fs, err := registry.NewFileSystem(ctx, rootURI, settingsFor("alice"))
	if err != nil {
		t.Fatalf("NewFileSystem failed: %v", err)
	}

	if _, err := registry.NewFileSystem(ctx, rootURI, settingsFor("alice")); !errors.Is(err, objerrors.ErrExist) {
		t.Errorf("Expected ErrExist for an open identity, got %v", err)
	}

	if _, err := registry.NewFileSystem(ctx, rootURI, settingsFor("bob")); err != nil {
		t.Errorf("Expected a different account to open independently, got %v", err)
	}

	if err := fs.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := registry.NewFileSystem(ctx, rootURI, settingsFor("alice")); err != nil {
		t.Errorf("Expected NewFileSystem to succeed after close, got %v", err)
	}
}

func TestRegistry_GetFileSystem(t *testing.T) {
	ctx := t.Context()
	t.Setenv("OBJFS_URL", "memory://")
	t.Setenv("OBJFS_ACCOUNT", "alice")
	registry, _ := newTestRegistry(t)

	if _, err := registry.GetFileSystem(ctx, rootURI); !errors.Is(err, objerrors.ErrNotExist) {
		t.Fatalf("Expected ErrNotExist before open, got %v", err)
	}

	fs, err := registry.CreateOrGet(ctx, rootURI, nil)
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}

	found, err := registry.GetFileSystem(ctx, rootURI)
	if err != nil {
		t.Fatalf("GetFileSystem failed: %v", err)
	}
	if found != fs {
		t.Errorf("Expected GetFileSystem to return the open filesystem")
	}

	if err := fs.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := registry.GetFileSystem(ctx, rootURI); !errors.Is(err, objerrors.ErrNotExist) {
		t.Errorf("Expected ErrNotExist after close, got %v", err)
	}
}

func TestRegistry_ConcurrentOpen(t *testing.T) {
	ctx := t.Context()
	registry, builds := newTestRegistry(t)

	const callers = 32
	results := make([]*objfs.FileSystem, callers)
	failures := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Go(func() {
			account := "alice"
			if i%2 == 1 {
				account = "bob"
			}
			results[i], failures[i] = registry.CreateOrGet(ctx, rootURI, settingsFor(account))
		})
	}
	wg.Wait()

	for i, err := range failures {
		if err != nil {
			t.Fatalf("Caller %d failed: %v", i, err)
		}
	}
	for i := 2; i < callers; i++ {
		if results[i] != results[i%2] {
			t.Errorf("Caller %d got a different filesystem for the same identity", i)
		}
	}
	if results[0] == results[1] {
		t.Errorf("Expected distinct filesystems for distinct accounts")
	}
	if builds.Load() != 2 {
		t.Errorf("Expected 2 backends, got %d", builds.Load())
	}
}

func TestRegistry_Identity(t *testing.T) {
	ctx := t.Context()
	registry, _ := newTestRegistry(t)

	fs, err := registry.CreateOrGet(ctx, "objfs://carol@/", settingsFor("alice"))
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}
	if fs.Identity.Settings.Account != "carol" {
		t.Errorf("Expected the uri user to override the account, got '%s'", fs.Identity.Settings.Account)
	}

	remote, err := registry.CreateOrGet(ctx, "objfs://objects.example.com", map[string]string{
		config.KeyURL:     "https://default.example.com",
		config.KeyAccount: "alice",
	})
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}
	if remote.Identity.Settings.URL != "https://objects.example.com:443" {
		t.Errorf("Expected the uri host to rewrite the endpoint, got '%s'", remote.Identity.Settings.URL)
	}
	if remote.Identity.Authority != "objects.example.com" {
		t.Errorf("Expected authority 'objects.example.com', got '%s'", remote.Identity.Authority)
	}
}

func TestRegistry_Errors(t *testing.T) {
	ctx := t.Context()
	t.Setenv("OBJFS_URL", "")
	t.Setenv("OBJFS_ACCOUNT", "")
	registry, _ := newTestRegistry(t)

	if _, err := registry.CreateOrGet(ctx, "https://objects.example.com", settingsFor("alice")); !errors.Is(err, objerrors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for a foreign scheme, got %v", err)
	}
	if _, err := registry.CreateOrGet(ctx, rootURI, map[string]string{config.KeyURL: "memory://"}); !errors.Is(err, objerrors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument without account, got %v", err)
	}
}

func TestRegistry_FactoryFailure(t *testing.T) {
	ctx := t.Context()
	attempts := &atomic.Int32{}
	cause := fmt.Errorf("connection refused")

	registry, _ := newTestRegistry(t, objfs.WithBackendFactory(func(ctx context.Context, settings config.Settings) (backend.ObjectStorageBackend, error) {
		attempts.Add(1)
		return nil, objerrors.IOFailure(cause, "connect", settings.URL)
	}))

	for range 2 {
		_, err := registry.CreateOrGet(ctx, rootURI, settingsFor("alice"))
		if !errors.Is(err, objerrors.ErrIO) || !errors.Is(err, cause) {
			t.Errorf("Expected ErrIO wrapping the cause, got %v", err)
		}
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected a failed open to be retried, got %d attempts", attempts.Load())
	}
}

// unreachableBackend fails to open and to close.
type unreachableBackend struct {
	*ephemeral.EphemeralBackend
	closes atomic.Int32
}

func (*unreachableBackend) Open(ctx context.Context) error {
	return fmt.Errorf("no route to host")
}

func (ub *unreachableBackend) Close(ctx context.Context) error {
	ub.closes.Add(1)
	return fmt.Errorf("connection already closed")
}

func TestRegistry_MountFailure(t *testing.T) {
	var buf bytes.Buffer
	storage := &unreachableBackend{EphemeralBackend: ephemeral.NewEphemeralBackend()}

	registry, _ := newTestRegistry(t,
		objfs.WithLogger(log.NewWriterLogger("objfs", log.Warn, &buf)),
		objfs.WithBackendFactory(func(ctx context.Context, settings config.Settings) (backend.ObjectStorageBackend, error) {
			return storage, nil
		}))

	if _, err := registry.CreateOrGet(t.Context(), rootURI, settingsFor("alice")); err == nil {
		t.Fatal("Expected CreateOrGet to fail when the backend cannot be opened")
	}
	if storage.closes.Load() != 1 {
		t.Errorf("Expected the backend to be closed once, got %d", storage.closes.Load())
	}
	if !strings.Contains(buf.String(), "failed to close backend") || !strings.Contains(buf.String(), "connection already closed") {
		t.Errorf("Expected the close failure to be logged, got '%s'", buf.String())
	}
}

func TestRegistry_CanceledBuild(t *testing.T) {
	started := make(chan struct{})
	attempts := &atomic.Int32{}

	registry, _ := newTestRegistry(t, objfs.WithBackendFactory(func(ctx context.Context, settings config.Settings) (backend.ObjectStorageBackend, error) {
		if attempts.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return ephemeral.NewEphemeralBackend(), nil
	}))

	buildCtx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var wg sync.WaitGroup
	var buildErr, waitErr error
	var waited *objfs.FileSystem

	wg.Go(func() {
		_, buildErr = registry.CreateOrGet(buildCtx, rootURI, settingsFor("alice"))
	})
	<-started
	wg.Go(func() {
		waited, waitErr = registry.CreateOrGet(t.Context(), rootURI, settingsFor("alice"))
	})

	// Gives the second caller time to wait on the pending build.
	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()

	if !errors.Is(buildErr, context.Canceled) {
		t.Errorf("Expected the canceled caller to get context.Canceled, got %v", buildErr)
	}
	if waitErr != nil {
		t.Fatalf("Expected the live caller to open the filesystem, got %v", waitErr)
	}
	if !waited.IsOpen() {
		t.Errorf("Expected an open filesystem")
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected the build to be retried once, got %d attempts", attempts.Load())
	}
}

func TestRegistry_GetPath(t *testing.T) {
	ctx := t.Context()
	t.Setenv("OBJFS_URL", "memory://")
	t.Setenv("OBJFS_ACCOUNT", "alice")
	registry, builds := newTestRegistry(t)

	path, err := registry.GetPath(ctx, "objfs:///alice/stor/file")
	if err != nil {
		t.Fatalf("GetPath failed: %v", err)
	}
	if path.String() != "/alice/stor/file" {
		t.Errorf("Expected '/alice/stor/file', got '%s'", path.String())
	}

	root, err := registry.GetPath(ctx, rootURI)
	if err != nil {
		t.Fatalf("GetPath failed: %v", err)
	}
	if !root.IsRoot() {
		t.Errorf("Expected root path, got '%s'", root.String())
	}

	if _, err := registry.GetFileSystem(ctx, rootURI); err != nil {
		t.Errorf("Expected GetPath to open the filesystem, got %v", err)
	}
	if builds.Load() != 1 {
		t.Errorf("Expected 1 backend, got %d", builds.Load())
	}
}

func TestRegistry_Shutdown(t *testing.T) {
	ctx := t.Context()
	registry, _ := newTestRegistry(t)

	alice, _ := registry.CreateOrGet(ctx, rootURI, settingsFor("alice"))
	bob, _ := registry.CreateOrGet(ctx, rootURI, settingsFor("bob"))

	if err := registry.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if alice.IsOpen() || bob.IsOpen() {
		t.Errorf("Expected every filesystem to be closed")
	}
}

func TestFileSystem_Operations(t *testing.T) {
	ctx := t.Context()
	registry, _ := newTestRegistry(t)

	fs, err := registry.CreateOrGet(ctx, rootURI, settingsFor("alice"))
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}

	dir, _ := fs.GetPath("~~/stor")
	file, _ := fs.GetPath("~~/stor", "hello.txt")

	if err := fs.CreateDirectory(ctx, dir); err != nil {
		t.Fatalf("CreateDirectory failed: %v", err)
	}

	out, err := fs.NewOutputStream(ctx, file, 0)
	if err != nil {
		t.Fatalf("NewOutputStream failed: %v", err)
	}
	if _, err := io.WriteString(out, "Hello World"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	stat, err := fs.ReadAttributes(ctx, file, objfs.BasicAttributeView)
	if err != nil {
		t.Fatalf("ReadAttributes failed: %v", err)
	}
	if stat.Size != 11 || !stat.IsRegular() {
		t.Errorf("Expected an 11 byte file, got %+v", stat)
	}

	in, err := fs.NewInputStream(ctx, file)
	if err != nil {
		t.Fatalf("NewInputStream failed: %v", err)
	}
	content, _ := io.ReadAll(in)
	in.Close()
	if string(content) != "Hello World" {
		t.Errorf("Expected 'Hello World', got '%s'", content)
	}

	channel, err := fs.NewByteChannel(ctx, file, data.OptionRead)
	if err != nil {
		t.Fatalf("NewByteChannel failed: %v", err)
	}
	if size, _ := channel.Size(); size != 11 {
		t.Errorf("Expected channel size 11, got %d", size)
	}
	channel.Close()

	stream, err := fs.NewDirectoryStream(ctx, dir, nil)
	if err != nil {
		t.Fatalf("NewDirectoryStream failed: %v", err)
	}
	entries, err := stream.Iterator()
	if err != nil {
		t.Fatalf("Iterator failed: %v", err)
	}
	names := []string{}
	for entry, err := range entries {
		if err != nil {
			t.Fatalf("Iteration failed: %v", err)
		}
		names = append(names, entry.String())
	}
	stream.Close()
	if strings.Join(names, ",") != "~~/stor/hello.txt" {
		t.Errorf("Expected one child, got %v", names)
	}

	if uri := fs.PathURI(file); uri != "objfs:///alice/stor/hello.txt" {
		t.Errorf("Expected 'objfs:///alice/stor/hello.txt', got '%s'", uri)
	}

	copied, _ := fs.GetPath("~~/stor/copy.txt")
	if err := fs.Copy(ctx, file, copied, false); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	moved, _ := fs.GetPath("~~/moved.txt")
	if err := fs.Move(ctx, copied, moved, false); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if err := fs.CheckAccess(ctx, moved, data.AccessRead|data.AccessWrite); err != nil {
		t.Errorf("Expected moved file to be accessible, got %v", err)
	}

	if err := fs.Delete(ctx, dir, true); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := fs.Stat(ctx, file); !errors.Is(err, objerrors.ErrNotExist) {
		t.Errorf("Expected ErrNotExist after delete, got %v", err)
	}
}

func TestFileSystem_Properties(t *testing.T) {
	ctx := t.Context()
	registry, _ := newTestRegistry(t)

	fs, err := registry.CreateOrGet(ctx, rootURI, settingsFor("alice"))
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}

	if fs.Separator() != "/" {
		t.Errorf("Expected separator '/', got '%s'", fs.Separator())
	}
	roots := fs.RootDirectories()
	if len(roots) != 1 || !roots[0].IsRoot() {
		t.Errorf("Expected a single root directory, got %v", roots)
	}
	if fs.IsReadOnly() {
		t.Errorf("Expected a writable filesystem")
	}

	store := fs.FileStore()
	if store.TotalSpace != math.MaxInt64 || store.UsableSpace != math.MaxInt64 {
		t.Errorf("Expected unbounded space, got %+v", store)
	}
	if views := fs.SupportedAttributeViews(); len(views) != 1 || views[0] != "basic" {
		t.Errorf("Expected only the basic view, got %v", views)
	}

	path, _ := fs.GetPath("/alice")
	if _, err := fs.ReadAttributes(ctx, path, "posix"); !errors.Is(err, objerrors.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for the posix view, got %v", err)
	}
	if err := fs.NewWatchService(); !errors.Is(err, objerrors.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for watch service, got %v", err)
	}
	if err := fs.CreateSymbolicLink(ctx, path, path); !errors.Is(err, objerrors.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for symbolic links, got %v", err)
	}
	if _, err := fs.ReadSymbolicLink(ctx, path); !errors.Is(err, objerrors.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for symbolic links, got %v", err)
	}
}

func TestFileSystem_PathMatcher(t *testing.T) {
	registry, _ := newTestRegistry(t)

	fs, err := registry.CreateOrGet(t.Context(), rootURI, settingsFor("alice"))
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}

	tests := []struct {
		pattern  string
		path     string
		expected bool
	}{
		{"glob:/alice/stor/*.txt", "/alice/stor/a.txt", true},
		{"glob:/alice/stor/*.txt", "/alice/stor/sub/b.txt", false},
		{"glob:/alice/**", "/alice/stor/sub/b.txt", true},
		{"glob:/alice/stor/{a,b}.txt", "/alice/stor/b.txt", true},
		{"regex:.*\\.txt", "/alice/stor/a.txt", true},
		{"regex:stor", "/alice/stor/a.txt", false},
	}

	for _, tt := range tests {
		matcher, err := fs.PathMatcher(tt.pattern)
		if err != nil {
			t.Errorf("PathMatcher(%q) failed: %v", tt.pattern, err)
			continue
		}
		path, _ := fs.GetPath(tt.path)
		if result := matcher(path); result != tt.expected {
			t.Errorf("PathMatcher(%q) on '%s': expected %v, got %v", tt.pattern, tt.path, tt.expected, result)
		}
	}

	if _, err := fs.PathMatcher("*.txt"); !errors.Is(err, objerrors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument without syntax, got %v", err)
	}
	if _, err := fs.PathMatcher("xpath:/a"); !errors.Is(err, objerrors.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported for unknown syntax, got %v", err)
	}
}

func TestRegistry_ReadOnly(t *testing.T) {
	ctx := t.Context()
	registry, _ := newTestRegistry(t, objfs.AsReadOnly())

	fs, err := registry.CreateOrGet(ctx, rootURI, settingsFor("alice"))
	if err != nil {
		t.Fatalf("CreateOrGet failed: %v", err)
	}
	if !fs.IsReadOnly() || !fs.FileStore().ReadOnly {
		t.Errorf("Expected a read-only filesystem")
	}

	dir, _ := fs.GetPath("~~/stor")
	if err := fs.CreateDirectory(ctx, dir); !errors.Is(err, objerrors.ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
}

func TestNewBackend(t *testing.T) {
	ctx := t.Context()

	tests := []struct {
		url  string
		name string
	}{
		{"memory://", "ephemeral"},
		{":ephemeral:", "ephemeral"},
		{"sqlite://:memory:", "sqlite"},
	}

	for _, tt := range tests {
		storage, err := objfs.NewBackend(ctx, config.Settings{URL: tt.url, Account: "alice"})
		if err != nil {
			t.Errorf("NewBackend(%q) failed: %v", tt.url, err)
			continue
		}
		if storage.Name() != tt.name {
			t.Errorf("NewBackend(%q): expected backend '%s', got '%s'", tt.url, tt.name, storage.Name())
		}
		storage.Close(ctx)
	}

	if _, err := objfs.NewBackend(ctx, config.Settings{URL: "ftp://example.com"}); !errors.Is(err, objerrors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for an unknown scheme, got %v", err)
	}
	if _, err := objfs.NewBackend(ctx, config.Settings{URL: "https://objects.example.com", Account: "alice"}); !errors.Is(err, objerrors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument without key settings, got %v", err)
	}
}
