package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool interface for abstracting pgx connection pool
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on the kv_entries table
type PostgresStore struct {
	pool Pool
}

// NewPostgresStore creates a new PostgresStore on an already migrated database
func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
	}
}

// Get retrieves the value stored under key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	sql := "SELECT value FROM kv_entries WHERE key = $1"

	var value []byte
	err := s.pool.QueryRow(ctx, sql, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, handlePostgreSQLError(err, "failed to get entry")
	}

	return value, nil
}

// Set upserts the value stored under key
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	sql := `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := s.pool.Exec(ctx, sql, key, value); err != nil {
		return handlePostgreSQLError(err, "failed to set entry")
	}
	return nil
}

// Delete removes the entry stored under key
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	sql := "DELETE FROM kv_entries WHERE key = $1"

	if _, err := s.pool.Exec(ctx, sql, key); err != nil {
		return handlePostgreSQLError(err, "failed to delete entry")
	}
	return nil
}

// List retrieves the keys starting with prefix
func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	sql := "SELECT key FROM kv_entries WHERE starts_with(key, $1) ORDER BY key"

	rows, err := s.pool.Query(ctx, sql, prefix)
	if err != nil {
		return nil, handlePostgreSQLError(err, "failed to list entries")
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, handlePostgreSQLError(err, "failed to scan key row")
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, handlePostgreSQLError(err, "failed to iterate key rows")
	}

	return keys, nil
}

// Close releases the underlying pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}
