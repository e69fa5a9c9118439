package commands

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/bondlab/pkg/config"
	"github.com/wonny/bondlab/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the PostgreSQL connection",
	Long: `Connect with DATABASE_URL, ping, run the health check and print pool
statistics.

Example:
  go run ./cmd/bondlab test-db
  go run ./cmd/bondlab test-db --env production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== bondlab Database Connection Test ===")

	fmt.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("❌ DATABASE_URL is not set")
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	fmt.Println("Connecting to database...")
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Println("✅ Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Println("Getting health status...")
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Timestamp: %v\n\n", status.Timestamp.Format(time.RFC3339))

	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Acquired Connections: %d\n", status.Stats.AcquiredConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)

	if len(status.Tables) > 0 {
		names := make([]string, 0, len(status.Tables))
		for name := range status.Tables {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("\n📋 Tables:")
		for _, name := range names {
			fmt.Printf("   %-32s %d rows\n", name, status.Tables[name])
		}
	}

	fmt.Println("\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password of a connection URL.
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return "***"
	}
	return u.Redacted()
}
