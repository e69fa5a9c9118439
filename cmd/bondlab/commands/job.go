package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/bondlab/internal/scheduler"
)

var (
	jobCmd = &cobra.Command{
		Use:   "job",
		Short: "Run or list maintenance jobs",
	}

	jobListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the jobs this configuration registers",
		RunE:  listJobs,
	}

	jobRunCmd = &cobra.Command{
		Use:   "run <name>",
		Short: "Run one job now",
		Long: `Run one maintenance job immediately, without retries.

Example:
  go run ./cmd/bondlab job run benchmark_warmup
  go run ./cmd/bondlab job run cache_report`,
		Args: cobra.ExactArgs(1),
		RunE: runJob,
	}
)

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobListCmd, jobRunCmd)
}

func withScheduler(fn func(*scheduler.Scheduler) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.scheduler(scheduler.WithRetry(0, 0))
	if err != nil {
		return err
	}
	return fn(s)
}

func listJobs(cmd *cobra.Command, args []string) error {
	return withScheduler(func(s *scheduler.Scheduler) error {
		stats := s.GetJobStats()
		for _, name := range s.GetAllJobs() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", name, stats[name].Schedule)
		}
		return nil
	})
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withScheduler(func(s *scheduler.Scheduler) error {
		res, err := s.RunJob(ctx, args[0])
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("❌ job %s failed: %s", res.JobName, res.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s completed in %v\n", res.JobName, res.Duration)
		return nil
	})
}
