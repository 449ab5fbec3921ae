package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
)

func (sb *SQLiteBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	key = backend.CleanKey(key)

	var fileType int
	var modifyTime int64
	stat := &data.FileStat{Key: key}

	err := sb.db.QueryRowContext(ctx,
		"SELECT type, size, content_type, etag, modify_time FROM objfs_objects WHERE key = ?",
		key).Scan(&fileType, &stat.Size, &stat.ContentType, &stat.ETag, &modifyTime)
	if err == sql.ErrNoRows {
		return nil, errors.NotExist(nil, "head", key)
	}
	if err != nil {
		return nil, errors.IOFailure(err, "head", key)
	}

	stat.Type = data.FileType(fileType)
	stat.ModTime = time.Unix(0, modifyTime)
	return stat, nil
}

func (sb *SQLiteBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	return sb.GetObjectRange(ctx, key, 0)
}

func (sb *SQLiteBackend) GetObjectRange(ctx context.Context, key string, offset int64) (io.ReadCloser, error) {
	key = backend.CleanKey(key)

	var fileType int
	var content []byte
	err := sb.db.QueryRowContext(ctx,
		"SELECT type, substr(content, ?) FROM objfs_objects WHERE key = ?",
		max(offset, 0)+1, key).Scan(&fileType, &content)
	if err == sql.ErrNoRows {
		return nil, errors.NotExist(nil, "get", key)
	}
	if err != nil {
		return nil, errors.IOFailure(err, "get", key)
	}
	if data.FileType(fileType) == data.FileTypeDirectory {
		return nil, errors.IsDirectory("get", key)
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (sb *SQLiteBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64) error {
	key = backend.CleanKey(key)

	content, err := io.ReadAll(r)
	if err != nil {
		return errors.IOFailure(err, "put", key)
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.IOFailure(err, "put", key)
	}
	defer tx.Rollback()

	fileType, exists, err := typeOf(ctx, tx, key)
	if err != nil {
		return errors.IOFailure(err, "put", key)
	}
	if exists && fileType == data.FileTypeDirectory {
		return errors.IsDirectory("put", key)
	}
	if err := createParents(ctx, tx, key); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO objfs_objects (key, parent, name, type, content, size, content_type, etag, modify_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			content_type = excluded.content_type,
			etag = excluded.etag,
			modify_time = excluded.modify_time
	`, key, backend.ParentKey(key), backend.BaseName(key), int(data.FileTypeFile), content, int64(len(content)),
		data.ContentTypeOf(key), backend.ETag(content), time.Now().UnixNano())
	if err != nil {
		return errors.IOFailure(err, "put", key)
	}

	if err := tx.Commit(); err != nil {
		return errors.IOFailure(err, "put", key)
	}
	return nil
}

func (sb *SQLiteBackend) PutDirectory(ctx context.Context, key string) error {
	key = backend.CleanKey(key)

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.IOFailure(err, "put directory", key)
	}
	defer tx.Rollback()

	fileType, exists, err := typeOf(ctx, tx, key)
	if err != nil {
		return errors.IOFailure(err, "put directory", key)
	}
	if exists {
		if fileType != data.FileTypeDirectory {
			return errors.Exist(nil, "put directory", key)
		}
		return nil
	}

	if err := createParents(ctx, tx, key); err != nil {
		return err
	}
	if err := insertDirectory(ctx, tx, key); err != nil {
		return errors.IOFailure(err, "put directory", key)
	}

	if err := tx.Commit(); err != nil {
		return errors.IOFailure(err, "put directory", key)
	}
	return nil
}

func (sb *SQLiteBackend) DeleteObject(ctx context.Context, key string) error {
	key = backend.CleanKey(key)

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.IOFailure(err, "delete", key)
	}
	defer tx.Rollback()

	fileType, exists, err := typeOf(ctx, tx, key)
	if err != nil {
		return errors.IOFailure(err, "delete", key)
	}
	if !exists {
		return errors.NotExist(nil, "delete", key)
	}

	if fileType == data.FileTypeDirectory {
		if key == "/" {
			return errors.AccessDenied(nil, "delete", key)
		}

		var child int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM objfs_objects WHERE parent = ? LIMIT 1", key).Scan(&child)
		if err == nil {
			return errors.DirectoryNotEmpty("delete", key)
		}
		if err != sql.ErrNoRows {
			return errors.IOFailure(err, "delete", key)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM objfs_objects WHERE key = ?", key); err != nil {
		return errors.IOFailure(err, "delete", key)
	}

	if err := tx.Commit(); err != nil {
		return errors.IOFailure(err, "delete", key)
	}
	return nil
}

func (sb *SQLiteBackend) ListObjects(ctx context.Context, key string, pageSize int) (backend.ListingCursor, error) {
	key = backend.CleanKey(key)

	fileType, exists, err := typeOf(ctx, sb.db, key)
	if err != nil {
		return nil, errors.IOFailure(err, "list", key)
	}
	if !exists {
		return nil, errors.NotExist(nil, "list", key)
	}
	if fileType != data.FileTypeDirectory {
		return nil, errors.NotDirectory("list", key)
	}

	return backend.NewPagedCursor(ctx, pageSize, func(ctx context.Context, marker string, limit int) ([]*backend.ListingEntry, error) {
		return sb.listPage(ctx, key, marker, limit)
	}), nil
}

func (sb *SQLiteBackend) listPage(ctx context.Context, key, marker string, limit int) ([]*backend.ListingEntry, error) {
	rows, err := sb.db.QueryContext(ctx,
		"SELECT name, type, size, modify_time FROM objfs_objects WHERE parent = ? AND name > ? ORDER BY name LIMIT ?",
		key, marker, limit)
	if err != nil {
		return nil, errors.IOFailure(err, "list", key)
	}
	defer rows.Close()

	entries := make([]*backend.ListingEntry, 0, limit)
	for rows.Next() {
		var name string
		var fileType int
		var size, modifyTime int64
		if err := rows.Scan(&name, &fileType, &size, &modifyTime); err != nil {
			return nil, errors.IOFailure(err, "list", key)
		}

		entries = append(entries, &backend.ListingEntry{
			Name:         name,
			Type:         data.FileType(fileType).String(),
			Size:         size,
			LastModified: backend.HTTPDate(time.Unix(0, modifyTime)),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.IOFailure(err, "list", key)
	}
	return entries, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func typeOf(ctx context.Context, q querier, key string) (data.FileType, bool, error) {
	var fileType int
	err := q.QueryRowContext(ctx, "SELECT type FROM objfs_objects WHERE key = ?", key).Scan(&fileType)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return data.FileType(fileType), true, nil
}

func createParents(ctx context.Context, q querier, key string) error {
	for _, parent := range backend.ParentKeys(key) {
		fileType, exists, err := typeOf(ctx, q, parent)
		if err != nil {
			return errors.IOFailure(err, "put", parent)
		}
		if !exists {
			if err := insertDirectory(ctx, q, parent); err != nil {
				return errors.IOFailure(err, "put", parent)
			}
			continue
		}
		if fileType != data.FileTypeDirectory {
			return errors.NotDirectory("put", parent)
		}
	}
	return nil
}

func insertDirectory(ctx context.Context, q querier, key string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO objfs_objects (key, parent, name, type, content_type, modify_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key, backend.ParentKey(key), backend.BaseName(key), int(data.FileTypeDirectory), data.ContentTypeDirectory, time.Now().UnixNano())
	return err
}
