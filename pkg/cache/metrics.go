// This file contains metrics-related types for observability of cache
// operations.
package cache

// Metrics provides observability for cache operations.
//
// Implementations can use this interface to collect metrics about hit
// rates, evictions and utilization. This is optional - if not provided,
// metrics collection is skipped.
//
// Example implementations:
//   - Prometheus metrics (pkg/metrics)
//   - In-memory counters for testing
type Metrics interface {
	// RecordLookup records a lookup and whether it hit.
	RecordLookup(hit bool)

	// RecordInsert records an insertion with its charge.
	RecordInsert(charge int64)

	// RecordEviction records a capacity eviction with the evicted charge.
	RecordEviction(charge int64)

	// RecordUsage records current totals after a mutating operation.
	RecordUsage(usage int64, entries int)
}

// noopMetrics is the default no-op metrics implementation.
type noopMetrics struct{}

func (noopMetrics) RecordLookup(hit bool)               {}
func (noopMetrics) RecordInsert(charge int64)           {}
func (noopMetrics) RecordEviction(charge int64)         {}
func (noopMetrics) RecordUsage(usage int64, entries int) {}
