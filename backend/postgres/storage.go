package postgres

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/data/errors"
)

func (pb *PostgresBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	key = backend.CleanKey(key)

	var fileType int
	stat := &data.FileStat{Key: key}

	err := pb.pool.QueryRow(ctx,
		"SELECT type, size, content_type, etag, modify_time FROM objfs_objects WHERE key = $1",
		key).Scan(&fileType, &stat.Size, &stat.ContentType, &stat.ETag, &stat.ModTime)
	if err == pgx.ErrNoRows {
		return nil, errors.NotExist(nil, "head", key)
	}
	if err != nil {
		return nil, errors.IOFailure(err, "head", key)
	}

	stat.Type = data.FileType(fileType)
	return stat, nil
}

func (pb *PostgresBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	return pb.GetObjectRange(ctx, key, 0)
}

func (pb *PostgresBackend) GetObjectRange(ctx context.Context, key string, offset int64) (io.ReadCloser, error) {
	key = backend.CleanKey(key)

	var fileType int
	var content []byte
	err := pb.pool.QueryRow(ctx,
		"SELECT type, substring(content FROM $1::int) FROM objfs_objects WHERE key = $2",
		max(offset, 0)+1, key).Scan(&fileType, &content)
	if err == pgx.ErrNoRows {
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

func (pb *PostgresBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64) error {
	key = backend.CleanKey(key)

	content, err := io.ReadAll(r)
	if err != nil {
		return errors.IOFailure(err, "put", key)
	}

	return pgx.BeginFunc(ctx, pb.pool, func(tx pgx.Tx) error {
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

		_, err = tx.Exec(ctx, `
			INSERT INTO objfs_objects (key, parent, name, type, content, size, content_type, etag, modify_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (key) DO UPDATE SET
				content = excluded.content,
				size = excluded.size,
				content_type = excluded.content_type,
				etag = excluded.etag,
				modify_time = excluded.modify_time
		`, key, backend.ParentKey(key), backend.BaseName(key), int(data.FileTypeFile), content, int64(len(content)),
			data.ContentTypeOf(key), backend.ETag(content), time.Now())
		if err != nil {
			return errors.IOFailure(err, "put", key)
		}
		return nil
	})
}

func (pb *PostgresBackend) PutDirectory(ctx context.Context, key string) error {
	key = backend.CleanKey(key)

	return pgx.BeginFunc(ctx, pb.pool, func(tx pgx.Tx) error {
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
		return nil
	})
}

func (pb *PostgresBackend) DeleteObject(ctx context.Context, key string) error {
	key = backend.CleanKey(key)

	return pgx.BeginFunc(ctx, pb.pool, func(tx pgx.Tx) error {
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

			var hasChildren bool
			err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM objfs_objects WHERE parent = $1)", key).Scan(&hasChildren)
			if err != nil {
				return errors.IOFailure(err, "delete", key)
			}
			if hasChildren {
				return errors.DirectoryNotEmpty("delete", key)
			}
		}

		if _, err := tx.Exec(ctx, "DELETE FROM objfs_objects WHERE key = $1", key); err != nil {
			return errors.IOFailure(err, "delete", key)
		}
		return nil
	})
}

func (pb *PostgresBackend) ListObjects(ctx context.Context, key string, pageSize int) (backend.ListingCursor, error) {
	key = backend.CleanKey(key)

	fileType, exists, err := typeOf(ctx, pb.pool, key)
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
		return pb.listPage(ctx, key, marker, limit)
	}), nil
}

func (pb *PostgresBackend) listPage(ctx context.Context, key, marker string, limit int) ([]*backend.ListingEntry, error) {
	rows, err := pb.pool.Query(ctx, `
		SELECT name, type, size, modify_time FROM objfs_objects
		WHERE parent = $1 AND name COLLATE "C" > $2
		ORDER BY name COLLATE "C" LIMIT $3`,
		key, marker, limit)
	if err != nil {
		return nil, errors.IOFailure(err, "list", key)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*backend.ListingEntry, error) {
		var name string
		var fileType int
		var size int64
		var modifyTime time.Time
		if err := row.Scan(&name, &fileType, &size, &modifyTime); err != nil {
			return nil, err
		}

		return &backend.ListingEntry{
			Name:         name,
			Type:         data.FileType(fileType).String(),
			Size:         size,
			LastModified: backend.HTTPDate(modifyTime),
		}, nil
	})
	if err != nil {
		return nil, errors.IOFailure(err, "list", key)
	}
	return entries, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func typeOf(ctx context.Context, q querier, key string) (data.FileType, bool, error) {
	var fileType int
	err := q.QueryRow(ctx, "SELECT type FROM objfs_objects WHERE key = $1", key).Scan(&fileType)
	if err == pgx.ErrNoRows {
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
	_, err := q.Exec(ctx, `INSERT INTO objfs_objects (key, parent, name, type, content_type, modify_time)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (key) DO NOTHING`,
		key, backend.ParentKey(key), backend.BaseName(key), int(data.FileTypeDirectory), data.ContentTypeDirectory, time.Now())
	return err
}
