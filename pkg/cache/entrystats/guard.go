package entrystats

import (
	"sync/atomic"
	"time"

	"github.com/marmos91/pincache/pkg/cache"
)

// Guard is a reference-counted alias of the cache handle pinning a
// collector. While any Guard (or Clone of it) is alive, the collector's
// cache entry cannot be evicted; releasing the last one releases the
// underlying handle and makes the entry evictable again.
//
// Guards are safe to share across goroutines. Clone and Release move the
// shared count; the underlying cache handle itself is never duplicated.
type Guard[S any, P PayloadPtr[S]] struct {
	state     *guardState
	collector *Collector[S, P]
}

// guardState is shared between a Guard and all its Clones.
type guardState struct {
	cache  cache.Cache
	handle cache.Handle
	refs   atomic.Int64
}

func newGuard[S any, P PayloadPtr[S]](c cache.Cache, h cache.Handle, coll *Collector[S, P]) *Guard[S, P] {
	st := &guardState{cache: c, handle: h}
	st.refs.Store(1)
	return &Guard[S, P]{state: st, collector: coll}
}

// Clone returns a new reference to the same collector, incrementing the
// shared count. The clone must be Released independently.
func (g *Guard[S, P]) Clone() *Guard[S, P] {
	if g.state.refs.Add(1) <= 1 {
		panic("entrystats: clone of released guard")
	}
	return &Guard[S, P]{state: g.state, collector: g.collector}
}

// Release drops this reference. When the last reference is dropped the
// cache handle is released, allowing the cache to evict the collector.
// Releasing a guard more than once panics.
func (g *Guard[S, P]) Release() {
	n := g.state.refs.Add(-1)
	if n < 0 {
		panic("entrystats: release of already released guard")
	}
	if n == 0 {
		g.state.cache.Release(g.state.handle)
	}
}

// Collector returns the pinned collector. The result must not be used
// after the last reference is released.
func (g *Guard[S, P]) Collector() *Collector[S, P] {
	return g.collector
}

// GetStats is shorthand for g.Collector().GetStats(out, maxAge).
func (g *Guard[S, P]) GetStats(out *S, maxAge time.Duration) {
	g.collector.GetStats(out, maxAge)
}
