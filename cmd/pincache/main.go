package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"syscall"

	"github.com/marmos91/pincache/internal/logger"
	"github.com/marmos91/pincache/pkg/cache"
	"github.com/marmos91/pincache/pkg/config"
	"github.com/marmos91/pincache/pkg/metrics"
	"github.com/marmos91/pincache/pkg/store/cached"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search standard locations)")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	entries := flag.Int("entries", 1000, "Number of entries for the demo workload")
	reads := flag.Int("reads", 5000, "Number of reads for the demo workload")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger.SetLevel(level)

	fmt.Println("pincache - cache layer demo")
	logger.Info("Log level set to: %s", level)
	logger.Info("Store type: %s", cfg.Store.Type)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Prometheus metrics enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backing, err := config.CreateStore(ctx, &cfg.Store)
	if err != nil {
		log.Fatalf("Failed to create backing store: %v", err)
	}

	c := cache.NewShardedLRU(cache.ShardedLRUOptions{
		CapacityBytes:  cfg.Cache.CapacityBytes,
		Shards:         cfg.Cache.Shards,
		StrictCapacity: cfg.Cache.StrictCapacity,
		Metrics:        metrics.NewCacheMetrics(),
	})

	cs := cached.New(backing, c, cached.Options{
		MaxLoadsPerSecond: cfg.Cache.MaxLoadsPerSecond,
		LoadBurst:         cfg.Cache.LoadBurst,
		StatsMetrics:      metrics.NewEntryStatsMetrics(),
	})
	defer func() {
		if err := cs.Close(); err != nil {
			logger.Error("Failed to close store: %v", err)
		}
	}()

	if err := runWorkload(ctx, cs, *entries, *reads); err != nil {
		log.Fatalf("Workload failed: %v", err)
	}

	reportStats(cfg, cs, c)
}

// runWorkload writes a keyspace through the cached store, then reads it
// back with a skewed access pattern so the cache has hits to show.
func runWorkload(ctx context.Context, cs *cached.Store, entries, reads int) error {
	logger.Info("Writing %d entries", entries)
	for i := 0; i < entries; i++ {
		key := fmt.Sprintf("item-%06d", i)
		value := []byte(fmt.Sprintf("payload for %s", key))
		if err := cs.Set(ctx, key, value); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	logger.Info("Reading %d times", reads)
	for i := 0; i < reads; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Zipf-ish skew: most reads hit a small hot set.
		var n int
		if rand.Intn(10) < 8 {
			n = rand.Intn(entries/10 + 1)
		} else {
			n = rand.Intn(entries)
		}
		key := fmt.Sprintf("item-%06d", n)
		if _, err := cs.Get(ctx, key); err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
	}
	return nil
}

// reportStats queries the shared usage collector twice: the first call
// scans, the second demonstrates the amortized snapshot path.
func reportStats(cfg *config.Config, cs *cached.Store, c cache.Cache) {
	stats, err := cs.UsageStats(cfg.Stats.MaxAge)
	if err != nil {
		logger.Error("Failed to collect usage stats: %v", err)
		return
	}
	logger.Info("Usage: entries=%d charge=%d scan=%v",
		stats.Entries, stats.TotalCharge, stats.ScanDuration())

	stats, err = cs.UsageStats(cfg.Stats.MaxAge)
	if err != nil {
		logger.Error("Failed to collect usage stats: %v", err)
		return
	}
	logger.Info("Usage (cached snapshot): collections=%d skips=%d",
		stats.Collections, stats.Skips)

	logger.Info("Cache totals: entries=%d usage_bytes=%d", c.Len(), c.Usage())

	if metrics.IsEnabled() {
		families, err := metrics.GetRegistry().Gather()
		if err != nil {
			logger.Error("Failed to gather metrics: %v", err)
			return
		}
		logger.Info("Gathered %d metric families", len(families))
	}
}
