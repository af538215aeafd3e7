// ABOUTME: SQLite implementation of the snapshot Store using modernc.org/sqlite
// ABOUTME: Keeps one row per snapshot key with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed. The path ":memory:" opens a
// private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			key        TEXT PRIMARY KEY,
			blob       BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// LoadSnapshot retrieves a snapshot blob.
// Returns ErrNotFound if nothing is stored under key.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT blob FROM snapshots WHERE key = ?`

	var blob []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&blob)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	return blob, nil
}

// SaveSnapshot creates or replaces a snapshot blob.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, key string, blob []byte) error {
	query := `
		INSERT INTO snapshots (key, blob, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		key,
		blob,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	s.logger.Debug("saved snapshot", "key", key, "size", len(blob))
	return nil
}

// DeleteSnapshot removes a snapshot. Missing keys are ignored.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns metadata for all stored snapshots ordered by key.
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, length(blob), updated_at FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var updatedAt string
		if err := rows.Scan(&info.Key, &info.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}

	return infos, nil
}
