package jobs

import (
	"context"

	"github.com/wonny/bondlab/internal/cache"
	"github.com/wonny/bondlab/pkg/logger"
)

// StatsSource reports result cache counters. engine.Engine implements it.
type StatsSource interface {
	CacheStats() cache.Stats
}

// CacheReportJob logs result cache counters
type CacheReportJob struct {
	stats  StatsSource
	logger *logger.Logger
}

// NewCacheReportJob creates a new cache report job
func NewCacheReportJob(stats StatsSource, log *logger.Logger) *CacheReportJob {
	return &CacheReportJob{
		stats:  stats,
		logger: log.WithComponent("job.cache_report"),
	}
}

// Name returns the job name
func (j *CacheReportJob) Name() string {
	return "cache_report"
}

// Schedule returns the cron schedule (every 15 minutes)
func (j *CacheReportJob) Schedule() string {
	return "0 */15 * * * *"
}

// Run logs the current counters and the hit ratio.
func (j *CacheReportJob) Run(ctx context.Context) error {
	st := j.stats.CacheStats()

	ratio := 0.0
	if total := st.Hits + st.Misses; total > 0 {
		ratio = float64(st.Hits) / float64(total)
	}

	j.logger.WithFields(map[string]interface{}{
		"hits":        st.Hits,
		"misses":      st.Misses,
		"evictions":   st.Evictions,
		"remote_hits": st.RemoteHits,
		"size":        st.Size,
		"capacity":    st.Capacity,
		"hit_ratio":   ratio,
	}).Info("Result cache report")

	return nil
}
