// Package cache memoizes schedules, analytics results and benchmark curves.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/pkg/logger"
	"github.com/wonny/bondlab/pkg/redis"
)

// Depth partitions the key space by how much of the pipeline an entry holds.
type Depth string

const (
	DepthSchedule  Depth = "schedule"
	DepthAnalytics Depth = "analytics"
	DepthBenchmark Depth = "benchmark"
)

// Key identifies a cached computation.
type Key struct {
	Identity   string
	Price      float64
	Settlement time.Time
	Depth      Depth
}

func (k Key) String() string {
	return string(k.Depth) + "|" + k.Identity + "|" +
		strconv.FormatFloat(k.Price, 'g', -1, 64) + "|" + k.Settlement.Format(contracts.DateLayout)
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
	RemoteHits uint64 `json:"remote_hits"`
	Size       int    `json:"size"`
	Capacity   int    `json:"capacity"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// Cache is a bounded LRU with a fixed per-entry TTL. Concurrent misses on
// the same key run the computation once. Failed computations are never stored.
// ⭐ SSOT: every memoized engine value goes through GetOrCompute
type Cache struct {
	entries  *expirable.LRU[string, any]
	group    singleflight.Group
	remote   *redis.Cache
	capacity int
	ttl      time.Duration
	logger   *logger.Logger

	hits, misses, evictions, remoteHits atomic.Uint64
}

// New creates a cache holding at most capacity entries for ttl each.
func New(capacity int, ttl time.Duration, log *logger.Logger) *Cache {
	if capacity <= 0 {
		capacity = 4096
	}
	if ttl <= 0 {
		ttl = redis.TTLAnalytics
	}
	c := &Cache{capacity: capacity, ttl: ttl, logger: log.WithComponent("cache")}
	c.entries = expirable.NewLRU[string, any](capacity, func(string, any) {
		c.evictions.Add(1)
	}, ttl)
	return c
}

// WithRemote adds a Redis second level for analytics entries.
func (c *Cache) WithRemote(remote *redis.Cache) *Cache {
	c.remote = remote
	return c
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. A nil cache always computes.
func GetOrCompute[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return fn(ctx)
	}

	k := key.String()
	if v, ok := c.entries.Get(k); ok {
		if typed, ok := v.(T); ok {
			c.hits.Add(1)
			return typed, nil
		}
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(k, func() (interface{}, error) {
		useRemote := key.Depth == DepthAnalytics && c.remote.Enabled()
		remoteKey := redis.AnalyticsKey(key.Identity, key.Price, key.Settlement.Format(contracts.DateLayout))

		if useRemote {
			var out T
			found, err := c.remote.Get(ctx, remoteKey, &out)
			if err != nil {
				c.logger.WithError(err).Warn("Remote cache read failed")
			} else if found {
				c.remoteHits.Add(1)
				c.entries.Add(k, out)
				return out, nil
			}
		}

		out, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.entries.Add(k, out)
		if useRemote {
			if err := c.remote.Set(ctx, remoteKey, out, c.ttl); err != nil {
				c.logger.WithError(err).Warn("Remote cache write failed")
			}
		}
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %s holds %T", k, v)
	}
	return typed, nil
}

// Stats returns the counters accumulated since creation.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		RemoteHits: c.remoteHits.Load(),
		Size:       c.entries.Len(),
		Capacity:   c.capacity,
		TTLSeconds: int64(c.ttl / time.Second),
	}
}

// Len is the number of live entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry. Counters are kept.
func (c *Cache) Purge() {
	c.entries.Purge()
}
