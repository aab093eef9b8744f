// This file contains metrics-related types for observability of the
// stats collector itself.
package entrystats

import "time"

// Metrics provides observability for collector behavior: how often scans
// actually run versus how often callers are served from the snapshot.
// This is optional - if not provided, metrics collection is skipped.
type Metrics interface {
	// RecordScan records a completed full-cache scan and its duration.
	RecordScan(d time.Duration)

	// RecordSkipped records a request served from the saved snapshot.
	RecordSkipped()
}

// noopMetrics is the default no-op metrics implementation.
type noopMetrics struct{}

func (noopMetrics) RecordScan(d time.Duration) {}
func (noopMetrics) RecordSkipped()             {}
