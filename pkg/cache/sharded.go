package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/marmos91/pincache/internal/logger"
)

// ShardedLRU is the production Cache implementation.
//
// Keys are distributed over a power-of-two number of shards by FNV-1a
// hash. Each shard holds its own hash table, LRU list and mutex, so
// operations on different shards never contend.
//
// Pinning model:
//   - Entries referenced by outstanding handles are pinned: they are
//     removed from the LRU list and cannot be evicted.
//   - When the last handle is released the entry rejoins the LRU list
//     (or is destroyed immediately if it was displaced or erased while
//     pinned, or if the shard is over capacity).
//   - Capacity eviction only ever removes unpinned entries, starting
//     from the least recently used.
//
// Deleters run outside the shard lock, after the entry has been
// unlinked, so a deleter can be arbitrarily slow without stalling the
// shard. Deleters must still not call back into the cache.
type ShardedLRU struct {
	shards  []*lruShard
	mask    uint64
	metrics Metrics

	usage   atomic.Int64
	entries atomic.Int64
}

// ShardedLRUOptions configures a ShardedLRU.
type ShardedLRUOptions struct {
	// CapacityBytes is the total charge budget, split evenly across
	// shards. Zero means unlimited (no capacity eviction).
	CapacityBytes int64

	// Shards is the desired shard count, rounded up to a power of two.
	// Zero selects the default of 16.
	Shards int

	// StrictCapacity makes Insert fail with ErrCacheFull when room
	// cannot be made, instead of temporarily exceeding capacity.
	StrictCapacity bool

	// Metrics receives operational metrics. Nil disables collection.
	Metrics Metrics
}

type lruShard struct {
	mu       sync.Mutex
	capacity int64 // 0 = unlimited
	strict   bool
	usage    int64
	table    map[string]*lruEntry
	lru      *list.List // back = least recently used; unpinned entries only
}

type lruEntry struct {
	key     string
	value   any
	charge  int64
	deleter Deleter
	refs    int           // guarded by the shard mutex
	node    *list.Element // non-nil iff unpinned and live
	live    bool          // still reachable through the table
}

type lruHandle struct {
	entry *lruEntry
	shard *lruShard
}

func (h *lruHandle) Key() string { return h.entry.key }

func (h *lruHandle) Value() any { return h.entry.value }

// NewShardedLRU creates a cache with the given options.
func NewShardedLRU(opts ShardedLRUOptions) *ShardedLRU {
	n := opts.Shards
	if n <= 0 {
		n = 16
	}
	shards := 1
	for shards < n {
		shards <<= 1
	}

	perShard := int64(0)
	if opts.CapacityBytes > 0 {
		perShard = opts.CapacityBytes / int64(shards)
		if perShard == 0 {
			perShard = 1
		}
	}

	m := opts.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	c := &ShardedLRU{
		shards:  make([]*lruShard, shards),
		mask:    uint64(shards - 1),
		metrics: m,
	}
	for i := range c.shards {
		c.shards[i] = &lruShard{
			capacity: perShard,
			strict:   opts.StrictCapacity,
			table:    make(map[string]*lruEntry),
			lru:      list.New(),
		}
	}

	logger.Debug("sharded cache created: shards=%d capacity=%d strict=%v",
		shards, opts.CapacityBytes, opts.StrictCapacity)
	return c
}

func (c *ShardedLRU) shard(key string) *lruShard {
	h := fnv.New64a()
	h.Write([]byte(key))
	return c.shards[h.Sum64()&c.mask]
}

// Lookup implements Cache.
func (c *ShardedLRU) Lookup(key string) Handle {
	s := c.shard(key)

	s.mu.Lock()
	e, ok := s.table[key]
	if ok {
		e.refs++
		if e.node != nil {
			s.lru.Remove(e.node)
			e.node = nil
		}
	}
	s.mu.Unlock()

	c.metrics.RecordLookup(ok)
	if !ok {
		return nil
	}
	return &lruHandle{entry: e, shard: s}
}

// Insert implements Cache. The returned handle pins the new entry.
func (c *ShardedLRU) Insert(key string, value any, charge int64, deleter Deleter) (Handle, error) {
	s := c.shard(key)
	var dead []*lruEntry

	s.mu.Lock()

	// Make room first. Only unpinned entries are candidates.
	evicted := s.evictUntil(charge, &dead)
	if s.capacity > 0 && s.strict && s.usage+charge > s.capacity {
		s.mu.Unlock()
		c.finish(dead, evicted)
		return nil, ErrCacheFull
	}

	// Displace any surviving entry under the same key.
	if old, ok := s.table[key]; ok {
		s.unlink(old)
		if old.refs == 0 {
			dead = append(dead, old)
		}
	}

	e := &lruEntry{
		key:     key,
		value:   value,
		charge:  charge,
		deleter: deleter,
		refs:    1,
		live:    true,
	}
	s.table[key] = e
	s.usage += charge

	s.mu.Unlock()

	c.usage.Add(charge)
	c.entries.Add(1)
	c.metrics.RecordInsert(charge)
	c.finish(dead, evicted)
	return &lruHandle{entry: e, shard: s}, nil
}

// Release implements Cache.
func (c *ShardedLRU) Release(h Handle) {
	lh, ok := h.(*lruHandle)
	if !ok || lh == nil {
		return
	}
	s := lh.shard
	e := lh.entry
	var dead []*lruEntry
	evicted := 0

	s.mu.Lock()
	if e.refs <= 0 {
		s.mu.Unlock()
		panic("cache: release of already released handle")
	}
	e.refs--
	if e.refs == 0 {
		switch {
		case !e.live:
			// Displaced or erased while pinned: destroy now.
			dead = append(dead, e)
		case s.capacity > 0 && s.usage > s.capacity:
			// Over budget: this entry just became the cheapest victim.
			s.unlink(e)
			dead = append(dead, e)
			evicted++
		default:
			e.node = s.lru.PushFront(e)
		}
	}
	s.mu.Unlock()

	c.finish(dead, evicted)
}

// Erase implements Cache.
func (c *ShardedLRU) Erase(key string) {
	s := c.shard(key)
	var dead []*lruEntry

	s.mu.Lock()
	if e, ok := s.table[key]; ok {
		s.unlink(e)
		if e.refs == 0 {
			dead = append(dead, e)
		}
	}
	s.mu.Unlock()

	c.finish(dead, 0)
}

// ApplyToAll implements Cache.
//
// Each shard is snapshotted under its lock and the visitor runs between
// lock acquisitions, so a slow visitor never stalls cache operations.
// Entries inserted or erased during the traversal may or may not be
// visited.
func (c *ShardedLRU) ApplyToAll(fn ApplyFunc, opts ApplyOptions) {
	type snap struct {
		key    string
		value  any
		charge int64
	}

	for _, s := range c.shards {
		s.mu.Lock()
		entries := make([]snap, 0, len(s.table))
		for _, e := range s.table {
			entries = append(entries, snap{key: e.key, value: e.value, charge: e.charge})
		}
		s.mu.Unlock()

		for _, e := range entries {
			fn(e.key, e.value, e.charge)
		}
	}
}

// Len implements Cache.
func (c *ShardedLRU) Len() int {
	return int(c.entries.Load())
}

// Usage implements Cache.
func (c *ShardedLRU) Usage() int64 {
	return c.usage.Load()
}

// unlink removes e from the table and LRU list and discounts its charge.
// Must be called with the shard mutex held.
func (s *lruShard) unlink(e *lruEntry) {
	delete(s.table, e.key)
	if e.node != nil {
		s.lru.Remove(e.node)
		e.node = nil
	}
	e.live = false
	s.usage -= e.charge
}

// evictUntil evicts least-recently-used unpinned entries until incoming
// fits within capacity or no candidates remain. Must be called with the
// shard mutex held. Returns the number of evictions.
func (s *lruShard) evictUntil(incoming int64, dead *[]*lruEntry) int {
	if s.capacity == 0 {
		return 0
	}
	n := 0
	for s.usage+incoming > s.capacity {
		back := s.lru.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*lruEntry)
		s.unlink(victim)
		*dead = append(*dead, victim)
		n++
	}
	return n
}

// finish runs deleters and accounting for entries that died during an
// operation. Called without any shard lock held.
func (c *ShardedLRU) finish(dead []*lruEntry, evicted int) {
	for i, e := range dead {
		c.usage.Add(-e.charge)
		c.entries.Add(-1)
		if i < evicted {
			c.metrics.RecordEviction(e.charge)
		}
		if e.deleter != nil {
			e.deleter(e.key, e.value)
		}
	}
	c.metrics.RecordUsage(c.usage.Load(), int(c.entries.Load()))
}
