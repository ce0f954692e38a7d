package refcache

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/match-tracker/internal/infrastructure/diskcache"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

// Fetcher loads one entity from upstream on a full cache miss.
type Fetcher[T any] func(ctx context.Context, id string) (T, error)

type memEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a two-tier reference cache for one entity kind: a bounded
// in-memory TTL tier backed by the shared disk store. A single mutex
// guards the kind; the disk write happens as a detached task.
type Cache[T any] struct {
	kind       string
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]memEntry[T]

	disk    *diskcache.Store
	fetch   Fetcher[T]
	logger  *logging.Logger
	metrics Metrics

	now            func() time.Time
	lastMetricsLog time.Time
}

func New[T any](kind string, ttl time.Duration, maxEntries int, disk *diskcache.Store, fetch Fetcher[T], logger *logging.Logger) *Cache[T] {
	if logger == nil {
		logger = logging.Default()
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	return &Cache[T]{
		kind:       kind,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memEntry[T]),
		disk:       disk,
		fetch:      fetch,
		logger:     logger,
		now:        time.Now,
	}
}

// sentinelID reports ids that must never reach the network.
func sentinelID(id string) bool {
	return id == "" || id == "unknown"
}

// Get returns the entity for id, consulting memory, then disk, then
// the fetcher. Every failure path degrades to the zero entity.
func (c *Cache[T]) Get(ctx context.Context, id string) T {
	var zero T
	if sentinelID(id) {
		return zero
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if e, ok := c.entries[id]; ok && e.expiresAt.After(now) {
		c.metrics.hits.Add(1)
		c.maybeLogMetrics(now)
		return e.value
	}

	if c.disk != nil {
		var v T
		if ts, ok := c.disk.Load(c.kind, id, &v); ok {
			if now.Unix()-ts <= int64(c.ttl.Seconds()) {
				c.metrics.diskHits.Add(1)
				c.store(id, v, now)
				c.maybeLogMetrics(now)
				return v
			}
		}
	}

	c.metrics.misses.Add(1)
	c.maybeLogMetrics(now)

	v, err := c.fetch(ctx, id)
	if err != nil {
		c.logger.WarnContext(ctx, "reference fetch failed, degrading to empty entity",
			"kind", c.kind,
			"id", id,
			"error", err,
		)
		return zero
	}

	c.store(id, v, now)
	if c.disk != nil {
		c.disk.SaveAsync(c.kind, id, v)
	}
	return v
}

// store writes to the memory tier, evicting when full. Caller holds
// the lock.
func (c *Cache[T]) store(id string, v T, now time.Time) {
	if len(c.entries) >= c.maxEntries {
		evicted := false
		for key, e := range c.entries {
			if !e.expiresAt.After(now) {
				delete(c.entries, key)
				evicted = true
			}
		}
		if !evicted {
			for key := range c.entries {
				delete(c.entries, key)
				break
			}
		}
	}

	c.entries[id] = memEntry[T]{value: v, expiresAt: now.Add(c.ttl)}
}

// Len reports the current memory-tier size.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// maybeLogMetrics emits a metrics line at most once per minute. Caller
// holds the lock.
func (c *Cache[T]) maybeLogMetrics(now time.Time) {
	if now.Sub(c.lastMetricsLog) < time.Minute {
		return
	}
	c.lastMetricsLog = now

	snap := c.metrics.Snapshot()
	c.logger.Info("reference cache metrics",
		"kind", c.kind,
		"hits", snap.Hits,
		"disk_hits", snap.DiskHits,
		"misses", snap.Misses,
		"hit_rate", snap.HitRate(),
		"entries", len(c.entries),
	)
}
