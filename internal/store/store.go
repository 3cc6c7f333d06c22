// Package store is the key-value persistence layer behind the vocabulary cache.
// Values are opaque bytes; callers own their encoding.
package store

import (
	"context"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "key not found")

// Store defines the operations every storage backend provides
type Store interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set creates or replaces the value stored under key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// List returns all keys starting with prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
}
