package scheduler

import (
	"context"
	"time"
)

// historySize is how many results are kept per job.
const historySize = 100

// Job is a named unit of scheduled work
// ⭐ SSOT: the scheduled job interface is defined here only
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job once
	Run(ctx context.Context) error

	// Schedule returns the cron expression with a seconds field,
	// e.g. "0 30 18 * * 1-5" or "@every 15m"
	Schedule() string
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory stores the most recent results of one job
type JobHistory struct {
	Results []JobResult
}

// AddResult appends result, dropping the oldest beyond historySize.
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historySize {
		h.Results = h.Results[len(h.Results)-historySize:]
	}
}

// GetLatestResults returns the latest n results, oldest first.
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate in [0, 1]; zero with no history.
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-len(h.GetFailedResults())) / float64(len(h.Results))
}
