package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/bondlab/pkg/config"
)

// Client is the shared connection behind the L2 result cache, the curve
// cache and the treasury rate limiter.
// ⭐ SSOT: Redis connections are only managed here
type Client struct {
	rdb     *redis.Client
	addr    string
	enabled bool
}

// options maps the Redis config onto driver options.
func options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
}

// New connects and pings Redis. A disabled config yields a no-op client
// whose cache and limiter calls pass through.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	opts := options(cfg.Redis)
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}

	return &Client{
		rdb:     rdb,
		addr:    opts.Addr,
		enabled: true,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Addr is the host:port in use, empty when disabled.
func (c *Client) Addr() string {
	return c.addr
}

// Redis returns the underlying redis client
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
