package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Taichi-iskw/yt-vocab/internal/config"
	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/Taichi-iskw/yt-vocab/migrations"
)

// Open creates the backend selected by cfg.Storage, applying migrations first. The returned
// function releases the backend.
func Open(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return NewMemoryStore(), func() {}, nil

	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to create sqlite directory")
		}
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.StoragePostgres:
		if err := MigratePostgres(cfg); err != nil {
			return nil, nil, err
		}
		pool, err := config.NewDatabasePool(ctx, cfg)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to connect to database")
		}
		s := NewPostgresStore(pool)
		return s, s.Close, nil

	default:
		return nil, nil, apperrors.New(apperrors.CodeInvalidArg, "unsupported storage backend: "+cfg.Storage)
	}
}

// MigratePostgres applies the postgres migrations to cfg.DatabaseURL
func MigratePostgres(cfg *config.Config) error {
	dbConfig, err := cfg.ParseDatabaseConfig()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidArg, "invalid database_url")
	}
	if err := Migrate(dbConfig.URL(), migrations.Postgres, "postgres"); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to migrate database")
	}
	return nil
}
