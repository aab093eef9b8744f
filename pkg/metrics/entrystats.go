package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/pincache/pkg/cache/entrystats"
)

// entryStatsMetrics is the Prometheus implementation of the
// entrystats.Metrics interface. The scans/skips ratio shows how well the
// staleness window amortizes full-cache scans across callers.
type entryStatsMetrics struct {
	scans        prometheus.Counter
	skips        prometheus.Counter
	scanDuration prometheus.Histogram
}

// NewEntryStatsMetrics creates a Prometheus-backed entrystats.Metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called),
// which causes the collector to use its built-in no-op implementation.
func NewEntryStatsMetrics() entrystats.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &entryStatsMetrics{
		scans: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "pincache_entrystats_scans_total",
				Help: "Total number of full-cache statistics scans",
			},
		),
		skips: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "pincache_entrystats_skips_total",
				Help: "Total number of requests served from the saved snapshot",
			},
		),
		scanDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "pincache_entrystats_scan_duration_seconds",
				Help: "Duration of full-cache statistics scans in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1,      // 1s
					5,      // 5s
				},
			},
		),
	}
}

// RecordScan implements entrystats.Metrics.RecordScan
func (m *entryStatsMetrics) RecordScan(d time.Duration) {
	m.scans.Inc()
	m.scanDuration.Observe(d.Seconds())
}

// RecordSkipped implements entrystats.Metrics.RecordSkipped
func (m *entryStatsMetrics) RecordSkipped() {
	m.skips.Inc()
}
