package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/bondlab/internal/api"
	"github.com/wonny/bondlab/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Start the REST API server, and the maintenance scheduler when
SCHEDULER_ENABLED=true.

Endpoints:
  GET  /health                   - Health check
  POST /api/bonds/analyze        - Analyze one bond
  POST /api/bonds/price          - Price one bond at a yield
  POST /api/portfolio/analyze    - Analyze a portfolio (?save=true stores the run)
  GET  /api/portfolio/runs/{id}  - Fetch a stored run
  GET  /api/cache/stats          - Result cache counters

Example:
  go run ./cmd/bondlab api
  go run ./cmd/bondlab api --port 9090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== bondlab API Server ===")

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"env":         cfg.Env,
		"conventions": cfg.Conventions.Source,
		"treasury":    cfg.Treasury.Source,
	}).Info("Initializing API server")

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var runs handlers.RunStore
	if a.runs != nil {
		runs = a.runs
	}
	router := api.NewRouter(api.Handlers{
		Bonds:     handlers.NewBondHandler(a.engine, time.Now, log),
		Portfolio: handlers.NewPortfolioHandler(a.engine, runs, time.Now, log),
		System:    handlers.NewSystemHandler(a.engine, "bondlab-api"),
	}, log)
	server := api.New(cfg, log, router)

	if cfg.SchedulerEnabled {
		sched, err := a.scheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")

	if err := server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
