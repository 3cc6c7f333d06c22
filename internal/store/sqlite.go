package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/migrations"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite migrates and opens the SQLite database at path
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := Migrate("sqlite3://"+path, migrations.SQLite, "sqlite"); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to open sqlite database")
	}
	// One writer at a time keeps SQLite away from SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to ping sqlite database")
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get entry")
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	q := `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to set entry")
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to delete entry")
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM kv_entries WHERE substr(key, 1, length(?)) = ? ORDER BY key", prefix, prefix)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list entries")
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan key row")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to iterate key rows")
	}
	return keys, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite database: %w", err)
	}
	return nil
}
