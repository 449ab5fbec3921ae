package mount

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
	"github.com/mwantia/objfs/log"
)

// Channel is a seekable byte channel over one remote object.
// A channel is meant for a single user and must not be shared.
type Channel interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Position returns the current offset.
	Position() int64

	// Size returns the current size of the object as seen by the channel.
	Size() (int64, error)

	// Truncate cuts the object to size bytes.
	Truncate(size int64) error

	IsOpen() bool
}

// NewChannel opens p for random access.
//
// Read-only channels stream the object with ranged reads when the backend
// supports them. Every other channel works on a local staging file that is
// uploaded as a whole on Close.
func (m *Mount) NewChannel(ctx context.Context, p data.ObjectPath, options data.OpenOption) (Channel, error) {
	key := m.RealKey(p)
	if err := m.checkOpen("open"); err != nil {
		return nil, err
	}

	m.log.Debug("NewChannel: opening '%s' with options %s", key, options)

	if options.IsReadOnly() {
		return m.newReadChannel(ctx, key, options)
	}
	if err := m.checkWritable("open", key); err != nil {
		return nil, err
	}

	stat, err := m.head(ctx, key)
	exists := err == nil
	switch {
	case exists && stat.IsDir():
		return nil, errors.IsDirectory("open", key)
	case exists && options.Has(data.OptionCreateNew):
		return nil, errors.Exist(nil, "open", key)
	case err != nil && !errors.Is(err, errors.ErrNotExist) && !errors.Is(err, errors.ErrAccessDenied):
		return nil, err
	}

	download := exists && !options.Has(data.OptionTruncateExisting)
	return m.newStagingChannel(ctx, key, options, download, true)
}

func (m *Mount) newReadChannel(ctx context.Context, key string, options data.OpenOption) (Channel, error) {
	stat, err := m.head(ctx, key)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, errors.IsDirectory("open", key)
	}

	if options.Has(data.OptionDeleteOnClose) {
		if err := m.checkWritable("open", key); err != nil {
			return nil, err
		}
		return m.newStagingChannel(ctx, key, options, true, false)
	}

	if reader, ok := backend.SupportsRangedReads(m.ObjectStorage); ok {
		channel := &rangeChannel{
			ctx:    ctx,
			id:     data.NewID(),
			mnt:    m,
			log:    m.log,
			key:    key,
			reader: reader,
			size:   stat.Size,
		}
		channel.open.Store(true)
		m.track(channel.id, channel)
		return channel, nil
	}

	return m.newStagingChannel(ctx, key, options, true, false)
}

func (m *Mount) newStagingChannel(ctx context.Context, key string, options data.OpenOption, download, upload bool) (Channel, error) {
	file, err := NewStagingFile(m.Options.StagingDir)
	if err != nil {
		return nil, errors.IOFailure(err, "stage", key)
	}

	channel := &stagingChannel{
		ctx:     ctx,
		id:      data.NewID(),
		mnt:     m,
		log:     m.log,
		key:     key,
		options: options,
		file:    file,
		upload:  upload,
	}

	if download {
		if err := channel.download(); err != nil {
			if removeErr := file.Remove(); removeErr != nil {
				m.log.Warn("NewChannel: failed to remove staging file '%s' - %v", file.Path(), removeErr)
			}
			return nil, err
		}
	}
	if options.Has(data.OptionAppend) {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Remove()
			return nil, errors.IOFailure(err, "stage", key)
		}
	}

	m.log.Debug("NewChannel: staging '%s' in '%s' (download=%t upload=%t)", key, file.Path(), download, upload)

	channel.open.Store(true)
	m.track(channel.id, channel)
	return channel, nil
}

// seekOffset computes the absolute offset of a Seek call.
func seekOffset(op, key string, position, size, offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = position + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, errors.InvalidArgument(op, "invalid whence %d for '%s'", whence, key)
	}

	if target < 0 {
		return 0, errors.InvalidArgument(op, "negative offset %d for '%s'", target, key)
	}
	return target, nil
}

// rangeChannel reads the remote object directly, reopening the remote
// stream at the new offset after every seek.
type rangeChannel struct {
	ctx context.Context
	id  string
	mnt *Mount
	log *log.Logger

	key    string
	reader backend.RangeReader
	body   io.ReadCloser

	position int64
	size     int64
	open     atomic.Bool
}

func (c *rangeChannel) Read(p []byte) (int, error) {
	if !c.open.Load() {
		return 0, errors.Closed("read", c.key)
	}

	if c.body == nil {
		c.log.Debug("Read: requesting '%s' from offset %d", c.key, c.position)

		body, err := c.reader.GetObjectRange(c.ctx, c.key, c.position)
		if err != nil {
			return 0, translate(err, "read", c.key)
		}
		c.body = body
	}

	n, err := c.body.Read(p)
	c.position += int64(n)
	if err != nil && err != io.EOF {
		return n, errors.IOFailure(err, "read", c.key)
	}
	return n, err
}

func (c *rangeChannel) Write(p []byte) (int, error) {
	return 0, errors.AccessDenied(fmt.Errorf("channel is open for reading only"), "write", c.key)
}

func (c *rangeChannel) Truncate(size int64) error {
	return errors.AccessDenied(fmt.Errorf("channel is open for reading only"), "truncate", c.key)
}

func (c *rangeChannel) Seek(offset int64, whence int) (int64, error) {
	if !c.open.Load() {
		return 0, errors.Closed("seek", c.key)
	}

	target, err := seekOffset("seek", c.key, c.position, c.size, offset, whence)
	if err != nil {
		return 0, err
	}

	if target != c.position && c.body != nil {
		c.body.Close()
		c.body = nil
	}
	c.position = target
	return target, nil
}

func (c *rangeChannel) Position() int64 {
	return c.position
}

func (c *rangeChannel) Size() (int64, error) {
	if !c.open.Load() {
		return 0, errors.Closed("size", c.key)
	}
	return c.size, nil
}

func (c *rangeChannel) IsOpen() bool {
	return c.open.Load()
}

func (c *rangeChannel) Close() error {
	if !c.open.CompareAndSwap(true, false) {
		return nil
	}
	defer c.mnt.untrack(c.id)

	if c.body != nil {
		if err := c.body.Close(); err != nil {
			c.log.Warn("Close: failed to release remote stream of '%s' - %v", c.key, err)
		}
		c.body = nil
	}
	return nil
}

// stagingChannel operates on a local copy of the remote object.
type stagingChannel struct {
	ctx context.Context
	id  string
	mnt *Mount
	log *log.Logger

	key     string
	options data.OpenOption
	file    *StagingFile
	upload  bool
	open    atomic.Bool
}

func (c *stagingChannel) download() error {
	body, err := c.mnt.ObjectStorage.GetObject(c.ctx, c.key)
	if err != nil {
		return translate(err, "download", c.key)
	}
	defer body.Close()

	n, err := c.file.Fill(body)
	if err != nil {
		return errors.IOFailure(err, "download", c.key)
	}

	c.log.Debug("NewChannel: downloaded %d bytes of '%s'", n, c.key)
	return nil
}

func (c *stagingChannel) Read(p []byte) (int, error) {
	if !c.open.Load() {
		return 0, errors.Closed("read", c.key)
	}
	if !c.options.CanRead() {
		return 0, errors.AccessDenied(fmt.Errorf("channel is open for writing only"), "read", c.key)
	}

	n, err := c.file.Read(p)
	if err != nil && err != io.EOF {
		return n, errors.IOFailure(err, "read", c.key)
	}
	return n, err
}

func (c *stagingChannel) Write(p []byte) (int, error) {
	if !c.open.Load() {
		return 0, errors.Closed("write", c.key)
	}
	if !c.upload {
		return 0, errors.AccessDenied(fmt.Errorf("channel is open for reading only"), "write", c.key)
	}

	if c.options.Has(data.OptionAppend) {
		if _, err := c.file.Seek(0, io.SeekEnd); err != nil {
			return 0, errors.IOFailure(err, "write", c.key)
		}
	}

	n, err := c.file.Write(p)
	if err != nil {
		return n, errors.IOFailure(err, "write", c.key)
	}
	return n, nil
}

func (c *stagingChannel) Seek(offset int64, whence int) (int64, error) {
	if !c.open.Load() {
		return 0, errors.Closed("seek", c.key)
	}

	size, err := c.file.Size()
	if err != nil {
		return 0, errors.IOFailure(err, "seek", c.key)
	}

	target, err := seekOffset("seek", c.key, c.Position(), size, offset, whence)
	if err != nil {
		return 0, err
	}

	if _, err := c.file.Seek(target, io.SeekStart); err != nil {
		return 0, errors.IOFailure(err, "seek", c.key)
	}
	return target, nil
}

func (c *stagingChannel) Position() int64 {
	position, err := c.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	return position
}

func (c *stagingChannel) Size() (int64, error) {
	if !c.open.Load() {
		return 0, errors.Closed("size", c.key)
	}

	size, err := c.file.Size()
	if err != nil {
		return 0, errors.IOFailure(err, "size", c.key)
	}
	return size, nil
}

// Truncate cuts the staging file. The position moves to size if it was beyond.
func (c *stagingChannel) Truncate(size int64) error {
	if !c.open.Load() {
		return errors.Closed("truncate", c.key)
	}
	if !c.upload {
		return errors.AccessDenied(fmt.Errorf("channel is open for reading only"), "truncate", c.key)
	}
	if size < 0 {
		return errors.InvalidArgument("truncate", "negative size %d for '%s'", size, c.key)
	}

	current, err := c.file.Size()
	if err != nil {
		return errors.IOFailure(err, "truncate", c.key)
	}
	if size >= current {
		return nil
	}

	position := c.Position()
	if err := c.file.File.Truncate(size); err != nil {
		return errors.IOFailure(err, "truncate", c.key)
	}
	if position > size {
		if _, err := c.file.Seek(size, io.SeekStart); err != nil {
			return errors.IOFailure(err, "truncate", c.key)
		}
	}
	return nil
}

func (c *stagingChannel) IsOpen() bool {
	return c.open.Load()
}

// Close uploads the staging file, removes it in every case and finally
// deletes the remote object if the channel was opened with DeleteOnClose.
func (c *stagingChannel) Close() error {
	return c.closeWith(c.ctx)
}

// closeWith is Close with the remote calls bound to ctx instead of the
// context the channel was opened with.
func (c *stagingChannel) closeWith(ctx context.Context) error {
	if !c.open.CompareAndSwap(true, false) {
		return nil
	}
	defer c.mnt.untrack(c.id)

	errs := errors.Errors{}
	if c.upload {
		errs.Add(c.flush(ctx))
	}

	if err := c.file.Remove(); err != nil {
		c.log.Warn("Close: failed to remove staging file '%s' - %v", c.file.Path(), err)
	}

	if c.options.Has(data.OptionDeleteOnClose) {
		c.log.Debug("Close: deleting '%s' on close", c.key)

		if err := c.mnt.ObjectStorage.DeleteObject(ctx, c.key); err != nil {
			errs.Add(translate(err, "delete on close", c.key))
		}
		c.mnt.cache.Invalidate(c.key)
	}

	return errs.Errors()
}

func (c *stagingChannel) flush(ctx context.Context) error {
	defer c.mnt.cache.Invalidate(c.key)

	size, err := c.file.Size()
	if err != nil {
		return errors.IOFailure(err, "upload", c.key)
	}
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return errors.IOFailure(err, "upload", c.key)
	}

	c.log.Debug("Close: uploading %d bytes to '%s'", size, c.key)

	if err := c.mnt.ObjectStorage.PutObject(ctx, c.key, c.file, size); err != nil {
		c.log.Error("Close: failed to upload '%s' - %v", c.key, err)
		return errors.IOFailure(err, "upload", c.key)
	}
	return nil
}
