package s3

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
)

// objectKey maps an object key onto its S3 key, which has no leading separator.
func objectKey(key string) string {
	return strings.TrimPrefix(backend.CleanKey(key), "/")
}

// markerKey is the S3 key of the directory marker for key.
func markerKey(key string) string {
	if k := objectKey(key); k != "" {
		return k + "/"
	}
	return ""
}

func isNotFound(err error) bool {
	response := minio.ToErrorResponse(err)
	return response.Code == "NoSuchKey" || response.StatusCode == 404
}

// stat resolves key to a file or a directory.
func (sb *S3Backend) stat(ctx context.Context, key string) (*data.FileStat, error) {
	key = backend.CleanKey(key)
	if key == "/" {
		return &data.FileStat{Key: key, Type: data.FileTypeDirectory, ContentType: data.ContentTypeDirectory}, nil
	}

	info, err := sb.client.StatObject(ctx, sb.bucketName, objectKey(key), minio.StatObjectOptions{})
	if err == nil {
		return toFileStat(key, info, data.FileTypeFile), nil
	}
	if !isNotFound(err) {
		return nil, translate(err, "head", key)
	}

	info, err = sb.client.StatObject(ctx, sb.bucketName, markerKey(key), minio.StatObjectOptions{})
	if err == nil {
		return toFileStat(key, info, data.FileTypeDirectory), nil
	}
	if !isNotFound(err) {
		return nil, translate(err, "head", key)
	}

	// Objects uploaded by other clients may imply a directory without a marker.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for object := range sb.client.ListObjects(listCtx, sb.bucketName, minio.ListObjectsOptions{
		Prefix:  markerKey(key),
		MaxKeys: 1,
	}) {
		if object.Err != nil {
			return nil, translate(object.Err, "head", key)
		}
		return &data.FileStat{Key: key, Type: data.FileTypeDirectory, ContentType: data.ContentTypeDirectory}, nil
	}

	return nil, errors.NotExist(nil, "head", key)
}

func toFileStat(key string, info minio.ObjectInfo, fileType data.FileType) *data.FileStat {
	stat := &data.FileStat{
		Key:         key,
		Type:        fileType,
		Size:        info.Size,
		ModTime:     info.LastModified,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}
	if fileType == data.FileTypeDirectory {
		stat.Size = 0
		stat.ContentType = data.ContentTypeDirectory
	}
	return stat
}

func (sb *S3Backend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	return sb.stat(ctx, key)
}

func (sb *S3Backend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	return sb.GetObjectRange(ctx, key, 0)
}

func (sb *S3Backend) GetObjectRange(ctx context.Context, key string, offset int64) (io.ReadCloser, error) {
	stat, err := sb.stat(ctx, key)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, errors.IsDirectory("get", stat.Key)
	}
	if offset >= stat.Size {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	opts := minio.GetObjectOptions{}
	if offset > 0 {
		if err := opts.SetRange(offset, 0); err != nil {
			return nil, errors.InvalidArgument("get", "invalid range offset %d: %v", offset, err)
		}
	}

	object, err := sb.client.GetObject(ctx, sb.bucketName, objectKey(key), opts)
	if err != nil {
		return nil, translate(err, "get", stat.Key)
	}
	return object, nil
}

func (sb *S3Backend) PutObject(ctx context.Context, key string, r io.Reader, size int64) error {
	key = backend.CleanKey(key)

	if _, err := sb.client.StatObject(ctx, sb.bucketName, markerKey(key), minio.StatObjectOptions{}); err == nil {
		return errors.IsDirectory("put", key)
	} else if !isNotFound(err) {
		return translate(err, "put", key)
	}
	if err := sb.createParents(ctx, key); err != nil {
		return err
	}

	_, err := sb.client.PutObject(ctx, sb.bucketName, objectKey(key), r, size, minio.PutObjectOptions{
		ContentType: data.ContentTypeOf(key),
	})
	if err != nil {
		return translate(err, "put", key)
	}
	return nil
}

func (sb *S3Backend) PutDirectory(ctx context.Context, key string) error {
	stat, err := sb.stat(ctx, key)
	if err == nil {
		if !stat.IsDir() {
			return errors.Exist(nil, "put directory", stat.Key)
		}
		return nil
	}
	if !errors.Is(err, errors.ErrNotExist) {
		return err
	}

	if err := sb.createParents(ctx, key); err != nil {
		return err
	}
	return sb.putMarker(ctx, key)
}

func (sb *S3Backend) putMarker(ctx context.Context, key string) error {
	_, err := sb.client.PutObject(ctx, sb.bucketName, markerKey(key), bytes.NewReader(nil), 0, minio.PutObjectOptions{
		ContentType: data.ContentTypeDirectory,
	})
	if err != nil {
		return translate(err, "put directory", key)
	}
	return nil
}

func (sb *S3Backend) createParents(ctx context.Context, key string) error {
	for _, parent := range backend.ParentKeys(key) {
		stat, err := sb.stat(ctx, parent)
		if err == nil {
			if !stat.IsDir() {
				return errors.NotDirectory("put", parent)
			}
			continue
		}
		if !errors.Is(err, errors.ErrNotExist) {
			return err
		}
		if err := sb.putMarker(ctx, parent); err != nil {
			return err
		}
	}
	return nil
}

func (sb *S3Backend) DeleteObject(ctx context.Context, key string) error {
	key = backend.CleanKey(key)
	if key == "/" {
		return errors.AccessDenied(nil, "delete", key)
	}

	stat, err := sb.stat(ctx, key)
	if err != nil {
		return err
	}

	if !stat.IsDir() {
		if err := sb.client.RemoveObject(ctx, sb.bucketName, objectKey(key), minio.RemoveObjectOptions{}); err != nil {
			return translate(err, "delete", key)
		}
		return nil
	}

	cursor, err := sb.ListObjects(ctx, key, 1)
	if err != nil {
		return err
	}
	defer cursor.Close()

	if _, err := cursor.Next(); err == nil {
		return errors.DirectoryNotEmpty("delete", key)
	} else if err != io.EOF {
		return err
	}

	if err := sb.client.RemoveObject(ctx, sb.bucketName, markerKey(key), minio.RemoveObjectOptions{}); err != nil {
		return translate(err, "delete", key)
	}
	return nil
}

func (sb *S3Backend) ListObjects(ctx context.Context, key string, pageSize int) (backend.ListingCursor, error) {
	stat, err := sb.stat(ctx, key)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, errors.NotDirectory("list", stat.Key)
	}
	if pageSize <= 0 {
		pageSize = backend.DefaultPageSize
	}

	listCtx, cancel := context.WithCancel(ctx)
	prefix := markerKey(stat.Key)

	return &objectCursor{
		key:    stat.Key,
		prefix: prefix,
		cancel: cancel,
		objects: sb.client.ListObjects(listCtx, sb.bucketName, minio.ListObjectsOptions{
			Prefix:  prefix,
			MaxKeys: pageSize,
		}),
	}, nil
}

// objectCursor reads the listing channel of minio, which requests the next
// page on its own once the previous one was consumed.
type objectCursor struct {
	key     string
	prefix  string
	objects <-chan minio.ObjectInfo
	cancel  context.CancelFunc
	closed  bool
}

func (c *objectCursor) Next() (*backend.ListingEntry, error) {
	if c.closed {
		return nil, errors.Closed("next", c.key)
	}

	for object := range c.objects {
		if object.Err != nil {
			return nil, translate(object.Err, "list", c.key)
		}
		if object.Key == c.prefix {
			continue
		}

		name := strings.TrimPrefix(object.Key, c.prefix)
		entry := &backend.ListingEntry{
			Name:         strings.TrimSuffix(name, "/"),
			Type:         data.FileTypeFile.String(),
			Size:         object.Size,
			LastModified: backend.HTTPDate(object.LastModified),
		}
		if strings.HasSuffix(name, "/") {
			entry.Type = data.FileTypeDirectory.String()
			entry.Size = 0
		}
		return entry, nil
	}

	return nil, io.EOF
}

func (c *objectCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()

	// Let the listing goroutine observe the cancellation and exit.
	for range c.objects {
	}
	return nil
}
