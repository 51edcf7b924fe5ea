package storage

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// Storage persists build artifacts, manifests and compressed bodies.
// Keys are slash separated. Implementations must be safe for concurrent use.
type Storage interface {
	// Write stores data under key, creating intermediate folders as needed.
	Write(ctx context.Context, key string, data []byte) error

	// Read retrieves data for key.
	// Returns os.ErrNotExist if the key does not exist.
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns all keys below prefix, recursively, sorted descending.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// IsNotExist reports whether err signals a missing key
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// DeletePrefix removes every key below prefix
func DeletePrefix(ctx context.Context, s Storage, prefix string) (int, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to list %q", prefix)
	}
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return 0, errors.Wrapf(err, "failed to delete %q", key)
		}
	}
	return len(keys), nil
}
