package mount_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mwantia/objfs/backend/ephemeral"
	"github.com/mwantia/objfs/data"
	objerrors "github.com/mwantia/objfs/data/errors"
	"github.com/mwantia/objfs/mount"
)

const helloKey = "/alice/stor/hello.txt"

var helloPath = data.MustParsePath(helloKey)

func writeAndClose(tst *testing.T, channel mount.Channel, content string) {
	tst.Helper()

	if _, err := io.WriteString(channel, content); err != nil {
		tst.Fatalf("Write failed: %v", err)
	}
	if err := channel.Close(); err != nil {
		tst.Fatalf("Close failed: %v", err)
	}
}

func TestChannel_CreateNewOnExisting(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			m := newFactoryMount(tst, factory)
			m.put(tst, helloKey, "Hello World")

			_, err := m.NewChannel(tst.Context(), helloPath, data.OptionCreateNew|data.OptionWrite)
			if !errors.Is(err, objerrors.ErrExist) {
				tst.Fatalf("Expected ErrExist, got %v", err)
			}
			if files := m.stagingFiles(tst); files != 0 {
				tst.Errorf("Expected no staging file, found %d", files)
			}
			if got := m.get(tst, helloKey); got != "Hello World" {
				tst.Errorf("Expected object to be untouched, got '%s'", got)
			}
		})
	}
}

func TestChannel_WriteOverwritesInPlace(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			m := newFactoryMount(tst, factory)
			m.put(tst, helloKey, "Hello World")

			channel, err := m.NewChannel(tst.Context(), helloPath, data.OptionWrite)
			if err != nil {
				tst.Fatalf("NewChannel failed: %v", err)
			}
			if m.stagingFiles(tst) != 1 {
				tst.Errorf("Expected one staging file while open")
			}
			writeAndClose(tst, channel, "Foo Bar")

			if got := m.get(tst, helloKey); got != "Foo Barorld" {
				tst.Errorf("Expected 'Foo Barorld', got '%s'", got)
			}
			if files := m.stagingFiles(tst); files != 0 {
				tst.Errorf("Expected staging file to be removed, found %d", files)
			}
		})
	}
}

func TestChannel_Append(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			m := newFactoryMount(tst, factory)
			m.put(tst, helloKey, "Hello World")

			channel, err := m.NewChannel(tst.Context(), helloPath, data.OptionWrite|data.OptionAppend)
			if err != nil {
				tst.Fatalf("NewChannel failed: %v", err)
			}
			if channel.Position() != 11 {
				tst.Errorf("Expected append channel to start at 11, got %d", channel.Position())
			}
			writeAndClose(tst, channel, "Foo Bar")

			if got := m.get(tst, helloKey); got != "Hello WorldFoo Bar" {
				tst.Errorf("Expected 'Hello WorldFoo Bar', got '%s'", got)
			}
		})
	}
}

func TestChannel_TruncateExisting(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			m := newFactoryMount(tst, factory)
			m.put(tst, helloKey, "Hello World")

			channel, err := m.NewChannel(tst.Context(), helloPath, data.OptionWrite|data.OptionTruncateExisting)
			if err != nil {
				tst.Fatalf("NewChannel failed: %v", err)
			}
			if size, _ := channel.Size(); size != 0 {
				tst.Errorf("Expected empty staging file, got size %d", size)
			}
			writeAndClose(tst, channel, "Bye")

			if got := m.get(tst, helloKey); got != "Bye" {
				tst.Errorf("Expected 'Bye', got '%s'", got)
			}
		})
	}
}

func TestChannel_CreateNew(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			m := newFactoryMount(tst, factory)

			channel, err := m.NewChannel(tst.Context(), data.MustParsePath("~~/new/file.txt"), data.OptionCreateNew|data.OptionWrite)
			if err != nil {
				tst.Fatalf("NewChannel failed: %v", err)
			}
			writeAndClose(tst, channel, "fresh")

			if got := m.get(tst, "/alice/new/file.txt"); got != "fresh" {
				tst.Errorf("Expected 'fresh', got '%s'", got)
			}
			stat, err := m.Stat(tst.Context(), data.MustParsePath("/alice/new"))
			if err != nil || !stat.IsDir() {
				tst.Errorf("Expected parent directory, got %+v (%v)", stat, err)
			}
		})
	}
}

func TestChannel_ReadOnly(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			m := newFactoryMount(tst, factory)
			m.put(tst, helloKey, "Hello World")

			channel, err := m.NewChannel(tst.Context(), helloPath, data.OptionRead)
			if err != nil {
				tst.Fatalf("NewChannel failed: %v", err)
			}
			defer channel.Close()

			content, err := io.ReadAll(channel)
			if err != nil || string(content) != "Hello World" {
				tst.Fatalf("Expected 'Hello World', got '%s' (%v)", content, err)
			}

			if _, err := channel.Seek(6, io.SeekStart); err != nil {
				tst.Fatalf("Seek failed: %v", err)
			}
			part := make([]byte, 5)
			if _, err := io.ReadFull(channel, part); err != nil || string(part) != "World" {
				tst.Errorf("Expected 'World', got '%s' (%v)", part, err)
			}

			if position, err := channel.Seek(-11, io.SeekEnd); err != nil || position != 0 {
				tst.Errorf("Expected position 0, got %d (%v)", position, err)
			}
			if _, err := channel.Seek(-1, io.SeekStart); !errors.Is(err, objerrors.ErrInvalidArgument) {
				tst.Errorf("Expected ErrInvalidArgument for a negative offset, got %v", err)
			}
			if size, _ := channel.Size(); size != 11 {
				tst.Errorf("Expected size 11, got %d", size)
			}

			if _, err := channel.Write([]byte("x")); !errors.Is(err, objerrors.ErrAccessDenied) {
				tst.Errorf("Expected ErrAccessDenied writing a read channel, got %v", err)
			}
			if err := channel.Truncate(0); !errors.Is(err, objerrors.ErrAccessDenied) {
				tst.Errorf("Expected ErrAccessDenied truncating a read channel, got %v", err)
			}

			if err := channel.Close(); err != nil {
				tst.Fatalf("Close failed: %v", err)
			}
			if got := m.get(tst, helloKey); got != "Hello World" {
				tst.Errorf("Expected read channel to leave the object untouched, got '%s'", got)
			}
			if files := m.stagingFiles(tst); files != 0 {
				tst.Errorf("Expected no staging file after close, found %d", files)
			}
		})
	}
}

func TestChannel_RangedReadsSkipStaging(t *testing.T) {
	m := newTestMount(t, ephemeral.NewEphemeralBackend())
	m.put(t, helloKey, "Hello World")

	channel, err := m.NewChannel(t.Context(), helloPath, 0)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	defer channel.Close()

	if files := m.stagingFiles(t); files != 0 {
		t.Errorf("Expected ranged reads to need no staging file, found %d", files)
	}
}

func TestChannel_ReadMissing(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			m := newFactoryMount(tst, factory)

			if _, err := m.NewChannel(tst.Context(), data.MustParsePath("/missing"), data.OptionRead); !errors.Is(err, objerrors.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
			if _, err := m.NewChannel(tst.Context(), data.MustParsePath("/"), data.OptionWrite); !errors.Is(err, objerrors.ErrIsDirectory) {
				tst.Errorf("Expected ErrIsDirectory for the root, got %v", err)
			}
		})
	}
}

func TestChannel_ReadWrite(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			m := newFactoryMount(tst, factory)
			m.put(tst, helloKey, "Hello World")

			channel, err := m.NewChannel(tst.Context(), helloPath, data.OptionRead|data.OptionWrite)
			if err != nil {
				tst.Fatalf("NewChannel failed: %v", err)
			}

			head := make([]byte, 5)
			if _, err := io.ReadFull(channel, head); err != nil || string(head) != "Hello" {
				tst.Fatalf("Expected 'Hello', got '%s' (%v)", head, err)
			}
			if _, err := io.WriteString(channel, " Gophers"); err != nil {
				tst.Fatalf("Write failed: %v", err)
			}
			if channel.Position() != 13 {
				tst.Errorf("Expected position 13, got %d", channel.Position())
			}
			if size, _ := channel.Size(); size != 13 {
				tst.Errorf("Expected size 13, got %d", size)
			}
			if err := channel.Close(); err != nil {
				tst.Fatalf("Close failed: %v", err)
			}

			if got := m.get(tst, helloKey); got != "Hello Gophers" {
				tst.Errorf("Expected 'Hello Gophers', got '%s'", got)
			}
		})
	}
}

func TestChannel_Truncate(t *testing.T) {
	m := newTestMount(t, ephemeral.NewEphemeralBackend())
	m.put(t, helloKey, "Hello World")

	channel, err := m.NewChannel(t.Context(), helloPath, data.OptionRead|data.OptionWrite)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}

	if _, err := channel.Seek(0, io.SeekEnd); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if err := channel.Truncate(5); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if channel.Position() != 5 {
		t.Errorf("Expected position to follow the truncation, got %d", channel.Position())
	}
	if err := channel.Truncate(-1); !errors.Is(err, objerrors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := m.get(t, helloKey); got != "Hello" {
		t.Errorf("Expected 'Hello', got '%s'", got)
	}
}

func TestChannel_WriteOnlyRejectsReads(t *testing.T) {
	m := newTestMount(t, ephemeral.NewEphemeralBackend())
	m.put(t, helloKey, "Hello World")

	channel, err := m.NewChannel(t.Context(), helloPath, data.OptionWrite)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	defer channel.Close()

	if _, err := channel.Read(make([]byte, 4)); !errors.Is(err, objerrors.ErrAccessDenied) {
		t.Errorf("Expected ErrAccessDenied, got %v", err)
	}
}

func TestChannel_DeleteOnClose(t *testing.T) {
	for name, factory := range GetTestStorageFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			m := newFactoryMount(tst, factory)
			m.put(tst, helloKey, "Hello World")

			channel, err := m.NewChannel(ctx, helloPath, data.OptionWrite|data.OptionDeleteOnClose)
			if err != nil {
				tst.Fatalf("NewChannel failed: %v", err)
			}
			writeAndClose(tst, channel, "scratch")

			if _, err := m.Stat(ctx, helloPath); !errors.Is(err, objerrors.ErrNotExist) {
				tst.Errorf("Expected object to be deleted on close, got %v", err)
			}

			m.put(tst, helloKey, "Hello World")
			channel, err = m.NewChannel(ctx, helloPath, data.OptionRead|data.OptionDeleteOnClose)
			if err != nil {
				tst.Fatalf("NewChannel failed: %v", err)
			}
			content, _ := io.ReadAll(channel)
			if string(content) != "Hello World" {
				tst.Errorf("Expected 'Hello World', got '%s'", content)
			}
			if err := channel.Close(); err != nil {
				tst.Fatalf("Close failed: %v", err)
			}
			if _, err := m.Stat(ctx, helloPath); !errors.Is(err, objerrors.ErrNotExist) {
				tst.Errorf("Expected read channel to delete on close, got %v", err)
			}
			if files := m.stagingFiles(tst); files != 0 {
				tst.Errorf("Expected no staging file, found %d", files)
			}
		})
	}
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	m := newTestMount(t, ephemeral.NewEphemeralBackend())

	channel, err := m.NewChannel(t.Context(), helloPath, data.OptionWrite)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	writeAndClose(t, channel, "once")

	if err := channel.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op, got %v", err)
	}
	if channel.IsOpen() {
		t.Error("Expected channel to report closed")
	}
	if _, err := channel.Write([]byte("x")); !errors.Is(err, objerrors.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if m.OpenResources() != 0 {
		t.Errorf("Expected channel to be untracked, got %d resources", m.OpenResources())
	}
}

func TestChannel_UploadFailure(t *testing.T) {
	storage := &failingBackend{ephemeral.NewEphemeralBackend()}
	m := newTestMount(t, storage)

	channel, err := m.NewChannel(t.Context(), helloPath, data.OptionWrite)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if _, err := io.WriteString(channel, "lost"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	err = channel.Close()
	if !errors.Is(err, objerrors.ErrIO) {
		t.Fatalf("Expected ErrIO from close, got %v", err)
	}
	if files := m.stagingFiles(t); files != 0 {
		t.Errorf("Expected staging file to be removed after a failed upload, found %d", files)
	}
	if err := channel.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op, got %v", err)
	}
}

func TestChannel_ReadOnlyMount(t *testing.T) {
	storage := ephemeral.NewEphemeralBackend()
	storage.PutObject(t.Context(), helloKey, strings.NewReader("Hello World"), 11)
	m := newTestMount(t, storage, mount.AsReadOnly())

	if _, err := m.NewChannel(t.Context(), helloPath, data.OptionWrite); !errors.Is(err, objerrors.ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
	if _, err := m.NewChannel(t.Context(), helloPath, data.OptionDeleteOnClose); !errors.Is(err, objerrors.ErrAccessDenied) {
		t.Errorf("Expected ErrAccessDenied, got %v", err)
	}

	channel, err := m.NewChannel(t.Context(), helloPath, data.OptionRead)
	if err != nil {
		t.Fatalf("Expected reads on a read-only mount, got %v", err)
	}
	channel.Close()
}
