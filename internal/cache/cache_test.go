package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondlab/pkg/config"
	"github.com/wonny/bondlab/pkg/logger"
	"github.com/wonny/bondlab/pkg/redis"
)

var settlement = time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)

func key(identity string, depth Depth) Key {
	return Key{Identity: identity, Price: 71.66, Settlement: settlement, Depth: depth}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "analytics|ISIN:US912810TJ79|71.66|2025-04-18", key("ISIN:US912810TJ79", DepthAnalytics).String())
	assert.Equal(t, "benchmark|us-treasury-par|0|2025-04-18",
		Key{Identity: "us-treasury-par", Settlement: settlement, Depth: DepthBenchmark}.String())
}

func TestGetOrCompute_HitAfterMiss(t *testing.T) {
	c := New(16, time.Minute, logger.Nop())
	calls := 0
	fn := func(context.Context) (float64, error) {
		calls++
		return 0.049, nil
	}

	v, err := GetOrCompute(context.Background(), c, key("a", DepthAnalytics), fn)
	require.NoError(t, err)
	assert.Equal(t, 0.049, v)

	v, err = GetOrCompute(context.Background(), c, key("a", DepthAnalytics), fn)
	require.NoError(t, err)
	assert.Equal(t, 0.049, v)
	assert.Equal(t, 1, calls)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 16, stats.Capacity)
	assert.Equal(t, int64(60), stats.TTLSeconds)
}

func TestGetOrCompute_DepthsAreSeparate(t *testing.T) {
	c := New(16, time.Minute, logger.Nop())

	_, err := GetOrCompute(context.Background(), c, key("a", DepthSchedule), func(context.Context) (string, error) {
		return "schedule", nil
	})
	require.NoError(t, err)

	v, err := GetOrCompute(context.Background(), c, key("a", DepthAnalytics), func(context.Context) (string, error) {
		return "analytics", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "analytics", v)
	assert.Equal(t, 2, c.Len())
}

func TestGetOrCompute_ErrorsAreNotCached(t *testing.T) {
	c := New(16, time.Minute, logger.Nop())
	boom := errors.New("boom")
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return 0, boom
	}

	for i := 0; i < 3; i++ {
		_, err := GetOrCompute(context.Background(), c, key("a", DepthAnalytics), fn)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 3, calls)
	assert.Zero(t, c.Len())
}

func TestGetOrCompute_CapacityEvicts(t *testing.T) {
	c := New(2, time.Minute, logger.Nop())
	for _, id := range []string{"a", "b", "c"} {
		_, err := GetOrCompute(context.Background(), c, key(id, DepthAnalytics), func(context.Context) (string, error) {
			return id, nil
		})
		require.NoError(t, err)
	}

	stats := c.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestGetOrCompute_TTLExpires(t *testing.T) {
	c := New(16, 50*time.Millisecond, logger.Nop())
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	first, err := GetOrCompute(context.Background(), c, key("a", DepthAnalytics), fn)
	require.NoError(t, err)
	time.Sleep(150 * time.Millisecond)
	second, err := GetOrCompute(context.Background(), c, key("a", DepthAnalytics), fn)
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestGetOrCompute_ConcurrentMissesCollapse(t *testing.T) {
	c := New(16, time.Minute, logger.Nop())
	var calls int32
	release := make(chan struct{})
	fn := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrCompute(context.Background(), c, key("a", DepthAnalytics), fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestGetOrCompute_NilCache(t *testing.T) {
	v, err := GetOrCompute(context.Background(), nil, key("a", DepthAnalytics), func(context.Context) (string, error) {
		return "computed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
}

func TestGetOrCompute_DisabledRemote(t *testing.T) {
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	c := New(16, time.Minute, logger.Nop()).WithRemote(redis.NewCache(client, "test"))

	calls := 0
	for i := 0; i < 2; i++ {
		v, err := GetOrCompute(context.Background(), c, key("a", DepthAnalytics), func(context.Context) (int, error) {
			calls++
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 1, calls)
	assert.Zero(t, c.Stats().RemoteHits)
}

func TestPurge(t *testing.T) {
	c := New(16, time.Minute, logger.Nop())
	_, err := GetOrCompute(context.Background(), c, key("a", DepthAnalytics), func(context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)

	c.Purge()
	assert.Zero(t, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Misses)
}
