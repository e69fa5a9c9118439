package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values under a namespaced key
// ⭐ SSOT: Redis cache helpers live here
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether reads and writes reach Redis.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil && c.client.Enabled()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A missing key is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Predefined TTLs
const (
	TTLAnalytics = 5 * time.Minute  // solved yield / risk for a price
	TTLCurve     = 30 * time.Minute // benchmark curve for a date
	TTLReference = 24 * time.Hour   // convention records
)

// AnalyticsKey is the key of a solved result for (identity, price, settlement).
func AnalyticsKey(identity string, price float64, settlement string) string {
	return fmt.Sprintf("analytics:%s:%s:%s", identity, strconv.FormatFloat(price, 'g', -1, 64), settlement)
}

// CurveKey is the key of a benchmark curve observation.
func CurveKey(source string, date string) string {
	return fmt.Sprintf("curve:%s:%s", source, date)
}
