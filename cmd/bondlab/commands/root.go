package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/bondlab/pkg/config"
	"github.com/wonny/bondlab/pkg/logger"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bondlab",
	Short: "Bond identity resolution and analytics engine",
	Long: `bondlab resolves bonds from identifiers or free-text descriptions and
computes yield, accrued interest, duration, convexity and benchmark spread
for single bonds and weighted portfolios.

Usage:
  go run ./cmd/bondlab [command]

Examples:
  go run ./cmd/bondlab api
  go run ./cmd/bondlab analyze --id US912810TJ79 --price 71.66 --settle 2025-04-18
  go run ./cmd/bondlab analyze --desc "T 3 15/08/52" --price 71.66
  go run ./cmd/bondlab portfolio holdings.yaml --save
  go run ./cmd/bondlab job run benchmark_warmup
  go run ./cmd/bondlab test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production), overrides ENV")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig loads the environment and applies global flag overrides.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}
