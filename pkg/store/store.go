// Package store defines the backing store contract beneath the cache
// layer.
//
// A Store is a durable (or at least authoritative) byte-oriented
// key/value repository. The cache layer in pkg/cache sits in front of a
// Store and absorbs repeated reads; the store is only consulted on
// misses and writes.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Delete when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a byte-oriented key/value repository.
//
// Implementations must be safe for concurrent use. Values returned by
// Get are owned by the caller; implementations must not retain or
// mutate them afterwards, and must not return buffers they later reuse.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// Close releases underlying resources. The store must not be used
	// after Close.
	Close() error
}
