package jobs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondlab/internal/cache"
	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/treasury"
	"github.com/wonny/bondlab/pkg/config"
	"github.com/wonny/bondlab/pkg/logger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type savedCurves struct {
	curves []*treasury.Curve
	err    error
}

func (s *savedCurves) Save(_ context.Context, c *treasury.Curve) error {
	if s.err != nil {
		return s.err
	}
	s.curves = append(s.curves, c)
	return nil
}

func holidayService() *treasury.Service {
	thursday := treasury.NewCurve(date(2025, 4, 17), "static", []treasury.Point{
		{Tenor: 10, Rate: 0.0434},
		{Tenor: 30, Rate: 0.0480},
	})
	return treasury.NewService(treasury.NewStaticSource("static", thursday), 10, time.Minute, logger.Nop())
}

func TestBenchmarkWarmup_FetchesAndStores(t *testing.T) {
	store := &savedCurves{}
	job := NewBenchmarkWarmupJob(holidayService(), store, logger.Nop())
	job.now = func() time.Time { return time.Date(2025, 4, 19, 18, 30, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, store.curves, 1)
	assert.Equal(t, date(2025, 4, 17), store.curves[0].Date)
	assert.Len(t, store.curves[0].Points, 2)
}

func TestBenchmarkWarmup_NoStore(t *testing.T) {
	job := NewBenchmarkWarmupJob(holidayService(), nil, logger.Nop())
	job.now = func() time.Time { return date(2025, 4, 18) }
	assert.NoError(t, job.Run(context.Background()))
}

func TestBenchmarkWarmup_Errors(t *testing.T) {
	empty := treasury.NewService(treasury.NewStaticSource("static"), 3, time.Minute, logger.Nop())
	job := NewBenchmarkWarmupJob(empty, nil, logger.Nop())
	job.now = func() time.Time { return date(2025, 4, 18) }
	assert.ErrorIs(t, job.Run(context.Background()), contracts.ErrBenchmarkUnavailable)

	failing := &savedCurves{err: errors.New("disk full")}
	job = NewBenchmarkWarmupJob(holidayService(), failing, logger.Nop())
	job.now = func() time.Time { return date(2025, 4, 18) }
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

type fixedStats cache.Stats

func (f fixedStats) CacheStats() cache.Stats { return cache.Stats(f) }

func TestCacheReport(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{LogLevel: "info"}, &buf)

	job := NewCacheReportJob(fixedStats{Hits: 3, Misses: 1, Size: 2, Capacity: 10}, log)
	assert.Equal(t, "cache_report", job.Name())
	require.NoError(t, job.Run(context.Background()))

	assert.Contains(t, buf.String(), `"hit_ratio":0.75`)
	assert.Contains(t, buf.String(), `"component":"job.cache_report"`)
}
