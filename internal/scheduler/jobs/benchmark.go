package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/treasury"
	"github.com/wonny/bondlab/pkg/logger"
)

// CurveFetcher returns the latest benchmark curve on or before a date.
// treasury.Service implements it.
type CurveFetcher interface {
	Latest(ctx context.Context, date time.Time) (*treasury.Curve, error)
}

// CurveSaver persists a curve. treasury.Repository implements it.
type CurveSaver interface {
	Save(ctx context.Context, c *treasury.Curve) error
}

// BenchmarkWarmupJob prefetches today's benchmark curve so the first
// analytics request of the day does not pay for the upstream fetch.
// ⭐ SSOT: scheduled curve refresh lives in this job only
type BenchmarkWarmupJob struct {
	curves CurveFetcher
	store  CurveSaver
	now    func() time.Time
	logger *logger.Logger
}

// NewBenchmarkWarmupJob creates the warm-up job. store may be nil, in which
// case fetched curves are only cached.
func NewBenchmarkWarmupJob(curves CurveFetcher, store CurveSaver, log *logger.Logger) *BenchmarkWarmupJob {
	return &BenchmarkWarmupJob{
		curves: curves,
		store:  store,
		now:    time.Now,
		logger: log.WithComponent("job.benchmark_warmup"),
	}
}

// Name returns the job name
func (j *BenchmarkWarmupJob) Name() string {
	return "benchmark_warmup"
}

// Schedule returns the cron schedule (weekdays 18:30 UTC, after the daily par curve release)
func (j *BenchmarkWarmupJob) Schedule() string {
	return "0 30 18 * * 1-5"
}

// Run fetches the latest curve and stores it when a store is configured.
func (j *BenchmarkWarmupJob) Run(ctx context.Context) error {
	today := contracts.Midnight(j.now().UTC())

	curve, err := j.curves.Latest(ctx, today)
	if err != nil {
		return fmt.Errorf("warm benchmark curve: %w", err)
	}

	if j.store != nil {
		if err := j.store.Save(ctx, curve); err != nil {
			return fmt.Errorf("store benchmark curve: %w", err)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"curve_date": curve.Date.Format(contracts.DateLayout),
		"source":     curve.Source,
		"points":     len(curve.Points),
		"stored":     j.store != nil,
	}).Info("Benchmark curve warmed")

	return nil
}
