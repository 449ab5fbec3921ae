package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend stores objects as rows of a single table.
// Every row knows its parent key, so a directory listing is one indexed
// range scan ordered by name.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// NewSQLiteBackend creates a new SQLite-backed object store.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if dbPath == ":memory:" || dbPath == "" {
		// Every connection of an in-memory database sees its own database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	sb := &SQLiteBackend{
		db:   db,
		path: dbPath,
	}

	if err := sb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return sb, nil
}

// initSchema creates the database schema and the root directory.
func (sb *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS objfs_objects (
		key TEXT PRIMARY KEY,
		parent TEXT NOT NULL,
		name TEXT NOT NULL,
		type INTEGER NOT NULL,
		content BLOB NOT NULL DEFAULT X'',
		size INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL DEFAULT '',
		etag TEXT NOT NULL DEFAULT '',
		modify_time INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_objfs_objects_parent ON objfs_objects(parent, name);
	`

	if _, err := sb.db.Exec(schema); err != nil {
		return err
	}

	_, err := sb.db.Exec(`INSERT OR IGNORE INTO objfs_objects (key, parent, name, type, content_type, modify_time)
		VALUES ('/', '', '', ?, ?, ?)`, int(data.FileTypeDirectory), data.ContentTypeDirectory, time.Now().UnixNano())
	return err
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and verifies the database connection.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	return sb.db.PingContext(ctx)
}

// Close is part of the lifecycle behaviour and closes the database.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	capabilities := []backend.BackendCapability{
		backend.CapabilityObjectStorage,
		backend.CapabilityRangedReads,
	}
	if sb.path != ":memory:" && sb.path != "" {
		capabilities = append(capabilities, backend.CapabilityPersistent)
	}

	return &backend.BackendCapabilities{
		Capabilities: capabilities,
	}
}
