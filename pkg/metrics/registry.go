// Package metrics provides Prometheus metrics collection for pincache
// components.
//
// All metrics are optional - if the registry is never initialized,
// components fall back to no-op implementations with zero overhead.
//
// Usage:
//
//	// Initialize the global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	cacheMetrics := metrics.NewCacheMetrics()
//	statsMetrics := metrics.NewEntryStatsMetrics()
//
//	// Or pass nil for no-op behavior
//	c := cache.NewShardedLRU(cache.ShardedLRUOptions{}) // No metrics
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all pincache
	// metrics, write-once via registryOnce.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry. It must be
// called before creating metrics instances and is safe to call more
// than once; subsequent calls are ignored.
//
// If never called, GetRegistry returns nil and all metrics constructors
// return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil if metrics
// are disabled.
//
// Thread safety:
// The sync.Once in InitRegistry provides the happens-before edge that
// makes the registry value visible to all readers.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}
