// Package cached wraps a backing store with the in-memory cache layer.
//
// This decorator pattern lets any store.Store implementation benefit
// from caching without modifying the store itself: reads are served from
// the cache when possible, misses load from the backing store and
// populate the cache, and writes go through to both.
//
// The wrapper is also where the entry statistics mechanism is put to
// work: UsageStats reports aggregate entry count and charge over the
// live cache, amortized across all callers via pkg/cache/entrystats.
package cached

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/pincache/internal/logger"
	"github.com/marmos91/pincache/internal/ratelimiter"
	"github.com/marmos91/pincache/pkg/cache"
	"github.com/marmos91/pincache/pkg/cache/entrystats"
	"github.com/marmos91/pincache/pkg/clock"
	"github.com/marmos91/pincache/pkg/store"
)

// ErrReservedKey is returned for keys inside the namespace reserved for
// pincache internals (keys starting with a NUL byte).
var ErrReservedKey = errors.New("cached: key is in the reserved namespace")

// Options configures a cached Store.
type Options struct {
	// Clock drives staleness decisions for usage statistics. Nil
	// selects the system clock.
	Clock clock.Clock

	// MaxLoadsPerSecond caps the rate of miss-path loads against the
	// backing store. Zero means unlimited.
	MaxLoadsPerSecond uint

	// LoadBurst is the burst capacity for miss-path loads.
	LoadBurst uint

	// StatsMetrics receives collector metrics (scans vs. skips). Nil
	// disables collection.
	StatsMetrics entrystats.Metrics
}

// Store is a read-through, write-through cached view of a backing
// store.
//
// Thread Safety:
// Safe for concurrent use. Values returned by Get are shared with the
// cache and must not be modified by callers.
type Store struct {
	backing store.Store
	cache   cache.Cache
	clock   clock.Clock
	limiter *ratelimiter.RateLimiter

	statsMetrics entrystats.Metrics

	guardMu sync.Mutex
	guard   *entrystats.UsageGuard
}

// New wraps backing with c. The cached Store takes ownership of the
// backing store: Close closes it.
func New(backing store.Store, c cache.Cache, opts Options) *Store {
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}

	var limiter *ratelimiter.RateLimiter
	if opts.MaxLoadsPerSecond > 0 {
		limiter = ratelimiter.New(opts.MaxLoadsPerSecond, opts.LoadBurst)
		logger.Info("cached store load limit: %d/s burst=%d", opts.MaxLoadsPerSecond, opts.LoadBurst)
	}

	return &Store{
		backing:      backing,
		cache:        c,
		clock:        clk,
		limiter:      limiter,
		statsMetrics: opts.StatsMetrics,
	}
}

// Cache returns the cache layer, e.g. for attaching additional
// statistics kinds.
func (s *Store) Cache() cache.Cache {
	return s.cache
}

// Get returns the value for key, from cache if possible. On a miss the
// value is loaded from the backing store and cached with a charge equal
// to its length.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if entrystats.IsReservedKey(key) {
		return nil, ErrReservedKey
	}

	if h := s.cache.Lookup(key); h != nil {
		value := h.Value().([]byte)
		s.cache.Release(h)
		return value, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("cached: load throttled: %w", err)
		}
	}

	value, err := s.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	h, err := s.cache.Insert(key, value, int64(len(value)), nil)
	if err != nil {
		// A full cache must not fail the read; serve uncached.
		logger.Warn("cached: could not cache %q: %v", key, err)
		return value, nil
	}
	s.cache.Release(h)
	return value, nil
}

// Set writes through to the backing store and refreshes the cache.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if entrystats.IsReservedKey(key) {
		return ErrReservedKey
	}

	if err := s.backing.Set(ctx, key, value); err != nil {
		return err
	}

	h, err := s.cache.Insert(key, value, int64(len(value)), nil)
	if err != nil {
		logger.Warn("cached: could not cache %q after write: %v", key, err)
		return nil
	}
	s.cache.Release(h)
	return nil
}

// Delete removes key from the backing store and invalidates the cache.
func (s *Store) Delete(ctx context.Context, key string) error {
	if entrystats.IsReservedKey(key) {
		return ErrReservedKey
	}

	err := s.backing.Delete(ctx, key)
	// Invalidate even when the backing store had nothing: the cache may
	// still hold a stale value from a displaced write.
	s.cache.Erase(key)
	return err
}

// UsageStats returns cache-wide usage statistics no older than maxAge.
// The first call creates (or attaches to) the shared collector; later
// calls within the staleness window are served from its snapshot.
func (s *Store) UsageStats(maxAge time.Duration) (entrystats.UsageStats, error) {
	var out entrystats.UsageStats

	s.guardMu.Lock()
	if s.guard == nil {
		g, err := entrystats.GetUsageShared(s.cache, s.clock, s.statsMetrics)
		if err != nil {
			s.guardMu.Unlock()
			return out, err
		}
		s.guard = g
	}
	g := s.guard
	s.guardMu.Unlock()

	g.GetStats(&out, maxAge)
	return out, nil
}

// Close releases the statistics guard and closes the backing store.
func (s *Store) Close() error {
	s.guardMu.Lock()
	if s.guard != nil {
		s.guard.Release()
		s.guard = nil
	}
	s.guardMu.Unlock()

	return s.backing.Close()
}
