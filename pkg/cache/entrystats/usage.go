package entrystats

import (
	"time"

	"github.com/marmos91/pincache/pkg/cache"
	"github.com/marmos91/pincache/pkg/clock"
)

// UsageStats is the built-in payload: entry count and charge totals over
// every live entry, with collection timing and freshness bookkeeping.
// It is what the read-through layer and the pincache CLI report.
type UsageStats struct {
	// Entries and TotalCharge are totals over the last completed scan.
	Entries     int64
	TotalCharge int64

	// Collections counts completed scans; Skips counts requests served
	// from the snapshot since the collector was created.
	Collections uint64
	Skips       uint64

	// LastStartMicros and LastEndMicros bracket the last completed scan
	// on the collector's clock.
	LastStartMicros uint64
	LastEndMicros   uint64
}

// BeginCollection implements Payload. It resets the accumulator for a
// fresh scan.
func (s *UsageStats) BeginCollection(c cache.Cache, clk clock.Clock, startMicros uint64) {
	s.Entries = 0
	s.TotalCharge = 0
	s.LastStartMicros = startMicros
}

// EntryCallback implements Payload. Entries in the reserved namespace
// (the collectors themselves) are not counted: the stats describe user
// data.
func (s *UsageStats) EntryCallback() cache.ApplyFunc {
	return func(key string, value any, charge int64) {
		if IsReservedKey(key) {
			return
		}
		s.Entries++
		s.TotalCharge += charge
	}
}

// EndCollection implements Payload.
func (s *UsageStats) EndCollection(c cache.Cache, clk clock.Clock, endMicros uint64) {
	s.LastEndMicros = endMicros
	s.Collections++
}

// SkippedCollection implements Payload.
func (s *UsageStats) SkippedCollection() {
	s.Skips++
}

// ScanDuration returns how long the last completed scan took.
func (s *UsageStats) ScanDuration() time.Duration {
	return time.Duration(s.LastEndMicros-s.LastStartMicros) * time.Microsecond
}

// usageKind is the process-wide kind for UsageStats collectors.
var usageKind = NewKind("usage")

// UsageGuard pins a UsageStats collector.
type UsageGuard = Guard[UsageStats, *UsageStats]

// GetUsageShared returns a guard on the UsageStats collector for c,
// creating it on first use. See GetShared.
func GetUsageShared(c cache.Cache, clk clock.Clock, m Metrics) (*UsageGuard, error) {
	return GetShared[UsageStats, *UsageStats](c, clk, usageKind, m)
}
