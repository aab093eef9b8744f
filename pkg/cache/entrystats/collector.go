// Package entrystats amortizes expensive full-cache-scan statistics
// across many independent callers sharing one cache.
//
// Scanning every live entry of a cache is proportional to the entry
// count, so letting every interested caller run its own periodic scan
// multiplies that cost for no benefit. This package keeps exactly one
// collector per (cache, statistics kind) pair, stored inside the cache
// itself, and serves recent results from a saved snapshot instead of
// rescanning:
//
//   - The collector singleton is created lazily on first use, race-free,
//     and pinned in the cache while any caller holds a Guard to it.
//   - A per-collector mutex ensures at most one goroutine scans at a
//     time; concurrent callers block and then receive the fresh result.
//   - Results younger than the caller's staleness bound are served from
//     the snapshot without touching the cache.
//
// Payload types define what is collected; the package defines only when
// and how often.
package entrystats

import (
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/pincache/internal/logger"
	"github.com/marmos91/pincache/pkg/cache"
	"github.com/marmos91/pincache/pkg/clock"
)

// Payload is the protocol a statistics accumulator implements.
//
// The type parameter S of Collector must be a value type: the collector
// copies it to callers, so after a shallow copy the snapshot must be
// independent of the accumulator for all reading purposes. Pointer
// fields shared between copies must be treated as immutable by readers.
type Payload interface {
	// BeginCollection is called immediately before a fresh scan starts.
	// Typical implementations reset accumulator state here.
	BeginCollection(c cache.Cache, clk clock.Clock, startMicros uint64)

	// EntryCallback returns the visitor invoked once per live entry
	// during the scan.
	EntryCallback() cache.ApplyFunc

	// EndCollection is called immediately after the scan completes.
	EndCollection(c cache.Cache, clk clock.Clock, endMicros uint64)

	// SkippedCollection is called when a request was satisfied from the
	// saved snapshot without a new scan.
	SkippedCollection()
}

// PayloadPtr constrains a pointer to a payload value type. It lets the
// collector hold S by value (for cheap snapshot copies) while invoking
// the protocol through *S.
type PayloadPtr[S any] interface {
	*S
	Payload
}

// Scans self-limit: a scan is forced at most once per this interval no
// matter how small the caller's staleness bound is...
const minRescanIntervalMicros = uint64(time.Second / time.Microsecond)

// ...and at most every scanCostFactor times the duration of the last
// scan, keeping scan overhead around 1% of wall time for huge caches.
const scanCostFactor = 100

// Collector owns the saved snapshot and staleness bookkeeping for one
// statistics kind on one cache.
//
// Collectors are stored inside the cache they scan, under the kind's
// reserved key, and are reached through Guards handed out by GetShared.
// The cache and clock references are borrowed, not owned: the collector
// lives inside the cache, so the cache necessarily outlives it.
type Collector[S any, P PayloadPtr[S]] struct {
	// mu serializes GetStats. Different kinds and different caches
	// never share a collector, so they never contend here.
	mu sync.Mutex

	saved           S
	lastStartMicros uint64
	lastEndMicros   uint64
	collected       bool // false until the first scan completes

	cache   cache.Cache
	clock   clock.Clock
	kind    *Kind
	metrics Metrics
}

func newCollector[S any, P PayloadPtr[S]](c cache.Cache, clk clock.Clock, kind *Kind, m Metrics) *Collector[S, P] {
	if m == nil {
		m = noopMetrics{}
	}
	return &Collector[S, P]{
		cache:   c,
		clock:   clk,
		kind:    kind,
		metrics: m,
	}
}

// GetStats copies a snapshot no older than maxAge into out, scanning the
// cache first if the saved snapshot is too stale.
//
// The effective staleness bound is maxAge clamped to be non-negative,
// then capped at max(1s, 100 x duration of the last scan): when scans
// are cheap the collector is willing to rescan more often than asked,
// but never more than once per second, and never so often that scanning
// exceeds roughly 1% of wall time.
//
// Concurrent callers serialize on the collector's mutex; at most one of
// them scans and every caller leaves with a complete snapshot (the one
// just produced or the most recently completed one). A fresh scan blocks
// the caller, and everyone queued behind it, for time proportional to
// the cache's entry count.
func (c *Collector[S, P]) GetStats(out *S, maxAge time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if maxAge < 0 {
		maxAge = 0
	}
	maxAgeMicros := uint64(maxAge / time.Microsecond)
	bound := max(minRescanIntervalMicros, scanCostFactor*(c.lastEndMicros-c.lastStartMicros))
	if maxAgeMicros > bound {
		maxAgeMicros = bound
	}

	start := c.clock.NowMicros()
	if !c.collected || start-c.lastEndMicros > maxAgeMicros {
		c.lastStartMicros = start
		P(&c.saved).BeginCollection(c.cache, c.clock, start)

		c.cache.ApplyToAll(P(&c.saved).EntryCallback(), cache.ApplyOptions{})

		end := c.clock.NowMicros()
		c.lastEndMicros = end
		c.collected = true
		P(&c.saved).EndCollection(c.cache, c.clock, end)

		c.metrics.RecordScan(time.Duration(end-start) * time.Microsecond)
		logger.Debug("entry stats scan: kind=%s duration_us=%d", c.kind.Name(), end-start)
	} else {
		P(&c.saved).SkippedCollection()
		c.metrics.RecordSkipped()
	}

	*out = c.saved
}

// Cache returns the cache this collector scans.
func (c *Collector[S, P]) Cache() cache.Cache { return c.cache }

// Kind returns the statistics kind this collector serves.
func (c *Collector[S, P]) Kind() *Kind { return c.kind }

// GetShared locates or creates the one collector for kind on c and
// returns a Guard pinning it in the cache.
//
// The fast path is a plain lookup. On a miss the kind's creation lock is
// taken and the lookup re-checked: Insert displaces duplicates rather
// than rejecting them, so without the double check two first-users could
// each construct a collector and strand one of them. Construction and
// insertion happen at most once per (cache, kind) pair.
//
// The collector is inserted with zero charge. Charging its real
// footprint would perturb capacity accounting that callers assert on,
// and the footprint is a single fixed-size object per kind.
//
// An insert failure (e.g. a strict-capacity cache with every entry
// pinned) is returned to the caller, who may retry or fall back to
// scanning directly. Finding a value of the wrong type under the kind's
// reserved key means the key space was violated; that is unrecoverable
// and panics rather than serving statistics of the wrong kind.
//
// The metrics sink is only used when this call constructs the collector;
// nil disables collection.
func GetShared[S any, P PayloadPtr[S]](c cache.Cache, clk clock.Clock, kind *Kind, m Metrics) (*Guard[S, P], error) {
	h := c.Lookup(kind.Key())
	if h == nil {
		kind.creationMu.Lock()
		h = c.Lookup(kind.Key())
		if h == nil {
			coll := newCollector[S, P](c, clk, kind, m)
			var err error
			h, err = c.Insert(kind.Key(), coll, 0, collectorDeleter)
			if err != nil {
				kind.creationMu.Unlock()
				return nil, fmt.Errorf("entrystats: insert collector for kind %q: %w", kind.Name(), err)
			}
			logger.Debug("entry stats collector created: kind=%s", kind.Name())
		}
		kind.creationMu.Unlock()
	}

	coll, ok := h.Value().(*Collector[S, P])
	if !ok {
		// Wrong value under a reserved key: either ordinary data leaked
		// into the reserved namespace or one Kind was used with two
		// payload types. Continuing would serve someone else's numbers.
		panic(fmt.Sprintf("entrystats: entry for kind %q holds %T, key space collision", kind.Name(), h.Value()))
	}
	return newGuard(c, h, coll), nil
}

// collectorDeleter is the cleanup callback attached to collector
// entries. The collector has no resources beyond memory; the log line
// makes eviction after the last Guard release observable.
func collectorDeleter(key string, value any) {
	logger.Debug("entry stats collector destroyed: key=%q", key)
}
