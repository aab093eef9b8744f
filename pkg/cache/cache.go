// Package cache implements the handle-based in-memory cache at the heart
// of pincache.
//
// The cache is a concurrent key/value store with reference-counted
// handles: a successful Lookup or Insert pins the entry, and the entry
// only becomes evictable again once every handle has been released. This
// pinning is what allows long-lived objects, such as the entry statistics
// collector in pkg/cache/entrystats, to live inside the cache itself
// without being evicted out from under their users.
//
// Thread Safety:
// All Cache implementations in this package are safe for concurrent use
// by multiple goroutines.
package cache

import "errors"

// ErrCacheFull is returned by Insert when the cache operates with a
// strict capacity limit and not enough unpinned entries could be evicted
// to make room for the new entry.
var ErrCacheFull = errors.New("cache: capacity exhausted, all entries pinned")

// Deleter is the cleanup callback attached to an entry at insertion time.
// It runs exactly once, after the entry has been removed from the cache
// and its last handle released. It must not call back into the cache.
//
// A nil Deleter is valid and means no cleanup is needed.
type Deleter func(key string, value any)

// ApplyFunc is the per-entry visitor used by ApplyToAll.
type ApplyFunc func(key string, value any, charge int64)

// ApplyOptions tunes a full traversal.
type ApplyOptions struct {
	// AverageEntriesPerLock hints how many entries a traversal should
	// gather per lock acquisition. ShardedLRU locks at shard
	// granularity and treats this as advisory.
	AverageEntriesPerLock int
}

// Handle is a pinned reference to a live cache entry.
//
// Handles are returned by Lookup and Insert and must be given back via
// Release. While at least one handle for an entry is outstanding, the
// entry will not be evicted and its deleter will not run.
type Handle interface {
	// Key returns the entry's key.
	Key() string

	// Value returns the entry's value. The value is shared between all
	// holders of handles to the same entry.
	Value() any
}

// Cache is a concurrent key/value store with handle-based pinning.
//
// Insert does not reject duplicate keys atomically: inserting an existing
// key displaces the previous entry (which is destroyed once unpinned).
// Callers that need at-most-once creation must serialize externally and
// re-check, as pkg/cache/entrystats does.
type Cache interface {
	// Lookup returns a handle to the entry under key, or nil if absent.
	// A non-nil result pins the entry until Release.
	Lookup(key string) Handle

	// Insert stores value under key with the given capacity charge and
	// cleanup callback, returning a handle pinning the new entry. An
	// existing entry under the same key is displaced.
	Insert(key string, value any, charge int64, deleter Deleter) (Handle, error)

	// Release unpins a handle obtained from Lookup or Insert. Each
	// handle must be released exactly once.
	Release(h Handle)

	// Erase removes the entry under key, if any. The entry's deleter
	// runs once all outstanding handles are released.
	Erase(key string)

	// ApplyToAll invokes fn once for each live entry. Ordering is
	// unspecified and there is no snapshot isolation with respect to
	// concurrent inserts and erases: entries added or removed during
	// the traversal may or may not be seen.
	ApplyToAll(fn ApplyFunc, opts ApplyOptions)

	// Len returns the current number of live entries.
	Len() int

	// Usage returns the summed charge of all live entries.
	Usage() int64
}
