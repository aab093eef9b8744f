// Package badgerstore provides a BadgerDB-backed Store implementation.
//
// BadgerDB is an embedded key/value store with WAL-based crash recovery,
// which makes this the store of choice when cached data must survive
// restarts. The cache layer in front of it absorbs read traffic, so
// Badger mostly sees misses and writes.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/pincache/internal/logger"
	"github.com/marmos91/pincache/pkg/store"
)

// Config configures a BadgerStore.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory runs Badger without touching disk. Useful for tests.
	InMemory bool

	// SyncWrites makes every write wait for fsync. Slower, but no
	// window of data loss on crash.
	SyncWrites bool
}

// BadgerStore implements store.Store on top of a Badger database.
//
// Thread Safety:
// Badger transactions provide the necessary isolation; the store adds
// no locking of its own.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database described by cfg.
func NewBadgerStore(ctx context.Context, cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badgerstore: path is required for on-disk databases")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil) // badger's own logger is too chatty; we log open/close ourselves

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %q: %w", cfg.Path, err)
	}

	logger.Info("badger store opened: path=%q in_memory=%v sync_writes=%v",
		cfg.Path, cfg.InMemory, cfg.SyncWrites)
	return &BadgerStore{db: db}, nil
}

// Get implements store.Store.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badgerstore: get %q: %w", key, err)
	}
	return value, nil
}

// Set implements store.Store.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badgerstore: set %q: %w", key, err)
	}
	return nil
}

// Delete implements store.Store.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("badgerstore: delete %q: %w", key, err)
	}
	return nil
}

// Close implements store.Store.
func (s *BadgerStore) Close() error {
	logger.Info("badger store closing")
	return s.db.Close()
}
