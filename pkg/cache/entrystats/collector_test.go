package entrystats_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pincache/pkg/cache"
	"github.com/marmos91/pincache/pkg/cache/entrystats"
	"github.com/marmos91/pincache/pkg/clock"
)

// probeCounters is shared between all copies of a probeStats payload so
// tests can observe protocol calls regardless of snapshot copying.
type probeCounters struct {
	begins atomic.Int64
	ends   atomic.Int64
	skips  atomic.Int64

	// visitDelay advances the clock on every visited entry, simulating
	// a scan that takes real time.
	clock      *clock.ManualClock
	visitDelay time.Duration
}

// probeCountersByCache lets a zero-value probeStats (the collector
// default-constructs its payload) find the counters for its cache on
// the first BeginCollection call.
var probeCountersByCache sync.Map // cache.Cache -> *probeCounters

// probeStats is the test payload: it counts user entries and records
// protocol calls in the shared counters.
type probeStats struct {
	rec *probeCounters

	Entries     int64
	TotalCharge int64
	StartMicros uint64
	EndMicros   uint64
}

func (s *probeStats) BeginCollection(c cache.Cache, clk clock.Clock, startMicros uint64) {
	if s.rec == nil {
		rec, ok := probeCountersByCache.Load(c)
		if !ok {
			panic("probeStats: no counters registered for cache")
		}
		s.rec = rec.(*probeCounters)
	}
	s.rec.begins.Add(1)
	s.Entries = 0
	s.TotalCharge = 0
	s.StartMicros = startMicros
}

func (s *probeStats) EntryCallback() cache.ApplyFunc {
	return func(key string, value any, charge int64) {
		if entrystats.IsReservedKey(key) {
			return
		}
		if s.rec.visitDelay > 0 {
			s.rec.clock.Advance(s.rec.visitDelay)
		}
		s.Entries++
		s.TotalCharge += charge
	}
}

func (s *probeStats) EndCollection(c cache.Cache, clk clock.Clock, endMicros uint64) {
	s.rec.ends.Add(1)
	s.EndMicros = endMicros
}

func (s *probeStats) SkippedCollection() {
	s.rec.skips.Add(1)
}

// newProbeEnv builds a cache preloaded with n user entries, a manual
// clock and a fresh kind for one test.
func newProbeEnv(t *testing.T, n int) (cache.Cache, *clock.ManualClock, *entrystats.Kind, *probeCounters) {
	t.Helper()

	c := cache.NewShardedLRU(cache.ShardedLRUOptions{})
	for i := 0; i < n; i++ {
		h, err := c.Insert(fmt.Sprintf("entry-%d", i), []byte("v"), 10, nil)
		require.NoError(t, err)
		c.Release(h)
	}

	clk := clock.NewManualClock(0)
	kind := entrystats.NewKind(t.Name())
	rec := &probeCounters{clock: clk}
	probeCountersByCache.Store(cache.Cache(c), rec)
	return c, clk, kind, rec
}

func getProbeShared(t *testing.T, c cache.Cache, clk clock.Clock, kind *entrystats.Kind) *entrystats.Guard[probeStats, *probeStats] {
	t.Helper()
	g, err := entrystats.GetShared[probeStats, *probeStats](c, clk, kind, nil)
	require.NoError(t, err)
	return g
}

// TestFirstCallScans verifies that the first request always performs
// exactly one scan regardless of the staleness bound.
func TestFirstCallScans(t *testing.T) {
	c, clk, kind, rec := newProbeEnv(t, 5)
	g := getProbeShared(t, c, clk, kind)
	defer g.Release()

	out := probeStats{rec: rec}
	g.Collector().GetStats(&out, 180*time.Second)

	assert.Equal(t, int64(1), rec.begins.Load())
	assert.Equal(t, int64(1), rec.ends.Load())
	assert.Equal(t, int64(0), rec.skips.Load())
	assert.Equal(t, int64(5), out.Entries)
	assert.Equal(t, int64(50), out.TotalCharge)
}

// TestSecondCallWithinWindowSkips: with a 180s bound, calls at t=0 and
// t=1 serve the second caller from the snapshot.
func TestSecondCallWithinWindowSkips(t *testing.T) {
	c, clk, kind, rec := newProbeEnv(t, 3)
	g := getProbeShared(t, c, clk, kind)
	defer g.Release()

	first := probeStats{rec: rec}
	g.Collector().GetStats(&first, 180*time.Second)
	require.Equal(t, int64(1), rec.begins.Load())

	clk.Advance(1 * time.Second)
	second := probeStats{rec: rec}
	g.Collector().GetStats(&second, 180*time.Second)

	assert.Equal(t, int64(1), rec.begins.Load(), "second call must not rescan")
	assert.Equal(t, int64(1), rec.skips.Load())
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.StartMicros, second.StartMicros, "snapshot must be the one from t=0")
}

func TestCallAfterWindowRescans(t *testing.T) {
	c, clk, kind, rec := newProbeEnv(t, 3)
	g := getProbeShared(t, c, clk, kind)
	defer g.Release()

	out := probeStats{rec: rec}
	g.Collector().GetStats(&out, 180*time.Second)
	require.Equal(t, int64(1), rec.begins.Load())

	clk.Advance(200 * time.Second)
	g.Collector().GetStats(&out, 180*time.Second)

	assert.Equal(t, int64(2), rec.begins.Load(), "call after the window must rescan")
	assert.Equal(t, int64(0), rec.skips.Load())
}

// TestNonNegativeMaxAgeIsHonored is the regression test for the
// staleness clamp: a large non-negative bound must not collapse to zero
// and force a scan on every call. (A negative bound is clamped up to
// zero instead.)
func TestNonNegativeMaxAgeIsHonored(t *testing.T) {
	c, clk, kind, rec := newProbeEnv(t, 3)
	g := getProbeShared(t, c, clk, kind)
	defer g.Release()

	out := probeStats{rec: rec}
	for i := 0; i < 5; i++ {
		g.Collector().GetStats(&out, time.Hour)
	}
	assert.Equal(t, int64(1), rec.begins.Load(), "repeated calls within the window must scan once")
	assert.Equal(t, int64(4), rec.skips.Load())
}

// TestScanCostCapsEffectiveBound verifies the 1% rule: the effective
// bound is capped at 100x the last scan duration, so cheap caches may
// be rescanned long before the caller's bound expires.
func TestScanCostCapsEffectiveBound(t *testing.T) {
	c, clk, kind, rec := newProbeEnv(t, 5)
	rec.visitDelay = 10 * time.Millisecond // scan of 5 entries takes 50ms

	g := getProbeShared(t, c, clk, kind)
	defer g.Release()

	out := probeStats{rec: rec}
	g.Collector().GetStats(&out, time.Hour)
	require.Equal(t, int64(1), rec.begins.Load())

	// Effective bound = max(1s, 100 * 50ms) = 5s.
	clk.Advance(4 * time.Second)
	g.Collector().GetStats(&out, time.Hour)
	assert.Equal(t, int64(1), rec.begins.Load(), "4s old snapshot is still fresh under the 5s cap")

	clk.Advance(2 * time.Second)
	g.Collector().GetStats(&out, time.Hour)
	assert.Equal(t, int64(2), rec.begins.Load(), "6s old snapshot must be refreshed")
}

// TestConcurrentGetStatsSingleScan runs many goroutines inside one
// staleness window: exactly one of them scans and every caller receives
// the same snapshot.
func TestConcurrentGetStatsSingleScan(t *testing.T) {
	const goroutines = 16

	c, clk, kind, rec := newProbeEnv(t, 10)
	g := getProbeShared(t, c, clk, kind)
	defer g.Release()

	var wg sync.WaitGroup
	results := make([]probeStats, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = probeStats{rec: rec}
			g.Collector().GetStats(&results[i], time.Minute)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), rec.begins.Load(), "exactly one scan across all callers")
	assert.Equal(t, int64(goroutines-1), rec.skips.Load())
	for i := range results {
		assert.Equal(t, int64(10), results[i].Entries, "caller %d got a different snapshot", i)
	}
}

// TestGetSharedConvergesOnOneCollector verifies race-free creation:
// concurrent first users all end up referencing the same collector.
func TestGetSharedConvergesOnOneCollector(t *testing.T) {
	const goroutines = 16

	c, clk, kind, _ := newProbeEnv(t, 0)

	var wg sync.WaitGroup
	guards := make([]*entrystats.Guard[probeStats, *probeStats], goroutines)
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guards[i], errs[i] = entrystats.GetShared[probeStats, *probeStats](c, clk, kind, nil)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
	}
	first := guards[0].Collector()
	for i, g := range guards {
		assert.Same(t, first, g.Collector(), "guard %d references a different collector", i)
		g.Release()
	}
}

// TestKindsAreIndependent verifies that two statistics kinds sharing a
// cache get independent collectors with independent staleness state.
func TestKindsAreIndependent(t *testing.T) {
	c, clk, _, rec := newProbeEnv(t, 4)
	kindA := entrystats.NewKind(t.Name() + "-a")
	kindB := entrystats.NewKind(t.Name() + "-b")

	ga := getProbeShared(t, c, clk, kindA)
	defer ga.Release()
	gb := getProbeShared(t, c, clk, kindB)
	defer gb.Release()

	require.NotSame(t, ga.Collector(), gb.Collector())

	out := probeStats{rec: rec}
	ga.Collector().GetStats(&out, time.Minute)
	assert.Equal(t, int64(1), rec.begins.Load())

	// B has never collected; its first call must scan even though A's
	// snapshot is fresh.
	gb.Collector().GetStats(&out, time.Minute)
	assert.Equal(t, int64(2), rec.begins.Load())
	assert.Equal(t, int64(0), rec.skips.Load())
}

// TestCollectorReplacedAfterErase verifies the lifecycle: once every
// guard is released the cache may erase the entry, and the next
// GetShared constructs a fresh collector.
func TestCollectorReplacedAfterErase(t *testing.T) {
	c, clk, kind, _ := newProbeEnv(t, 2)

	g1 := getProbeShared(t, c, clk, kind)
	first := g1.Collector()
	g1.Release()

	// With no guards outstanding the entry is unpinned; erase stands in
	// for the cache deciding to evict it.
	c.Erase(kind.Key())

	g2 := getProbeShared(t, c, clk, kind)
	defer g2.Release()
	assert.NotSame(t, first, g2.Collector(), "erase must force a fresh collector")
}

// TestGuardCloneKeepsCollectorPinned verifies that clones share the
// reference count and only the last release unpins the entry.
func TestGuardCloneKeepsCollectorPinned(t *testing.T) {
	c, clk, kind, _ := newProbeEnv(t, 0)

	g := getProbeShared(t, c, clk, kind)
	clone := g.Clone()
	require.Same(t, g.Collector(), clone.Collector())

	g.Release()

	// The clone still pins the entry: erase must defer destruction and
	// a new GetShared must still find the same collector.
	h := c.Lookup(kind.Key())
	require.NotNil(t, h, "entry must still be live while a clone exists")
	c.Release(h)

	clone.Release()
}

func TestGuardDoubleReleasePanics(t *testing.T) {
	c, clk, kind, _ := newProbeEnv(t, 0)

	g := getProbeShared(t, c, clk, kind)
	g.Release()
	assert.Panics(t, func() { g.Release() })
}

// TestKeySpaceCollisionPanics verifies the identity defense: finding a
// foreign value under a kind's reserved key is fatal.
func TestKeySpaceCollisionPanics(t *testing.T) {
	c, clk, kind, _ := newProbeEnv(t, 0)

	h, err := c.Insert(kind.Key(), []byte("not a collector"), 0, nil)
	require.NoError(t, err)
	c.Release(h)

	assert.Panics(t, func() {
		_, _ = entrystats.GetShared[probeStats, *probeStats](c, clk, kind, nil)
	})
}

// failingCache wraps a Cache and fails every Insert, to exercise the
// factory's recoverable error path.
type failingCache struct {
	cache.Cache
}

func (f *failingCache) Insert(key string, value any, charge int64, deleter cache.Deleter) (cache.Handle, error) {
	return nil, cache.ErrCacheFull
}

func TestGetSharedPropagatesInsertFailure(t *testing.T) {
	c, clk, kind, _ := newProbeEnv(t, 0)

	_, err := entrystats.GetShared[probeStats, *probeStats](&failingCache{Cache: c}, clk, kind, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrCacheFull)
}
