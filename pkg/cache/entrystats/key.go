package entrystats

import (
	"fmt"
	"strings"
	"sync"
)

// keyPrefix namespaces collector entries away from ordinary cached data.
// Keys starting with a NUL byte are reserved for pincache internals; the
// read-through layer in pkg/store/cached rejects them for user data.
const keyPrefix = "\x00pincache.entrystats\x00"

// Kind identifies one statistics payload type. Exactly one collector per
// (Cache, Kind) pair ever exists; the Kind supplies the fixed cache key
// the collector is stored under and owns the creation lock that makes
// first use race-free.
//
// Declare kinds once at package level, next to the payload type they are
// bound to:
//
//	var hotKeysKind = entrystats.NewKind("hotkeys")
//
// A Kind must only ever be used with a single payload type. Using one
// Kind with two different payload types is a programming error and makes
// GetShared panic on the type check.
type Kind struct {
	name string
	key  string

	// creationMu serializes collector construction for this kind across
	// all caches. Insert is not atomic get-or-create, so first use
	// double-checks under this lock.
	creationMu sync.Mutex
}

var (
	kindsMu sync.Mutex
	kinds   = make(map[string]*Kind)
)

// NewKind registers a statistics kind under a process-unique name.
// Panics on empty or duplicate names: kinds are declared statically and
// a duplicate indicates two packages claiming the same key space.
func NewKind(name string) *Kind {
	if name == "" {
		panic("entrystats: kind name must not be empty")
	}
	if strings.ContainsRune(name, 0) {
		panic("entrystats: kind name must not contain NUL")
	}

	kindsMu.Lock()
	defer kindsMu.Unlock()

	if _, dup := kinds[name]; dup {
		panic(fmt.Sprintf("entrystats: kind %q already registered", name))
	}
	k := &Kind{name: name, key: keyPrefix + name}
	kinds[name] = k
	return k
}

// Name returns the registered kind name.
func (k *Kind) Name() string { return k.name }

// Key returns the cache key the kind's collector is stored under. The
// key is constant for the process lifetime and identical across caches.
func (k *Kind) Key() string { return k.key }

// IsReservedKey reports whether key lies in the namespace reserved for
// collector entries. Cache users storing ordinary data must not use
// reserved keys.
func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, "\x00")
}
