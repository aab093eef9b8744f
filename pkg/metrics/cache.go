package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/pincache/pkg/cache"
)

// cacheMetrics is the Prometheus implementation of the cache.Metrics
// interface: hit/miss counts, insertions, evictions and current
// utilization of the cache layer.
type cacheMetrics struct {
	lookups   *prometheus.CounterVec
	inserts   prometheus.Counter
	evictions prometheus.Counter

	insertedBytes prometheus.Counter
	evictedBytes  prometheus.Counter

	usageBytes prometheus.Gauge
	entries    prometheus.Gauge
}

// NewCacheMetrics creates a Prometheus-backed cache.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called),
// which causes the cache to use its built-in no-op implementation.
func NewCacheMetrics() cache.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pincache_cache_lookups_total",
				Help: "Total number of cache lookups",
			},
			[]string{"result"},
		),
		inserts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "pincache_cache_inserts_total",
				Help: "Total number of cache insertions",
			},
		),
		evictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "pincache_cache_evictions_total",
				Help: "Total number of capacity evictions",
			},
		),
		insertedBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "pincache_cache_inserted_bytes_total",
				Help: "Total charge inserted into the cache",
			},
		),
		evictedBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "pincache_cache_evicted_bytes_total",
				Help: "Total charge removed by capacity evictions",
			},
		),
		usageBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "pincache_cache_usage_bytes",
				Help: "Current summed charge of all live entries",
			},
		),
		entries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "pincache_cache_entries",
				Help: "Current number of live entries",
			},
		),
	}
}

// RecordLookup implements cache.Metrics.RecordLookup
func (m *cacheMetrics) RecordLookup(hit bool) {
	if hit {
		m.lookups.WithLabelValues("hit").Inc()
	} else {
		m.lookups.WithLabelValues("miss").Inc()
	}
}

// RecordInsert implements cache.Metrics.RecordInsert
func (m *cacheMetrics) RecordInsert(charge int64) {
	m.inserts.Inc()
	m.insertedBytes.Add(float64(charge))
}

// RecordEviction implements cache.Metrics.RecordEviction
func (m *cacheMetrics) RecordEviction(charge int64) {
	m.evictions.Inc()
	m.evictedBytes.Add(float64(charge))
}

// RecordUsage implements cache.Metrics.RecordUsage
func (m *cacheMetrics) RecordUsage(usage int64, entries int) {
	m.usageBytes.Set(float64(usage))
	m.entries.Set(float64(entries))
}
