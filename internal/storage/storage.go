package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key holds no value.
var ErrNotFound = errors.New("key not found")

// Store is the client's durable key-value store, the equivalent of a
// browser's local storage. Values are plain strings.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
