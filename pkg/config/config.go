package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port   string
	Env    string // development, staging, production
	Server ServerConfig

	// Database (convention store / benchmark curve repository)
	Database DatabaseConfig

	// Redis (second-level result cache, outbound rate limiting)
	Redis RedisConfig

	// Reference data sources
	Conventions ConventionsConfig
	Treasury    TreasuryConfig

	// Engine
	Cache     CacheConfig
	Solver    SolverConfig
	Portfolio PortfolioConfig

	// Scheduler
	SchedulerEnabled bool

	// Logging
	LogLevel  string
	LogFormat string
}

// ServerConfig holds HTTP server timeouts. WriteTimeout also bounds the
// slowest portfolio analysis.
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool

	// Timeout applies to dial, read and write.
	Timeout  time.Duration
	PoolSize int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ConventionsConfig selects where day-count / frequency conventions come from.
type ConventionsConfig struct {
	Source string // memory, postgres
	File   string // optional YAML seed for the memory store
}

// TreasuryConfig configures the benchmark curve source.
type TreasuryConfig struct {
	Source       string // textview, postgres, none
	BaseURL      string
	RatePerSec   float64
	LookbackDays int
	Timeout      time.Duration
}

// CacheConfig bounds the in-process result cache.
type CacheConfig struct {
	Capacity int
	TTL      time.Duration
	RemoteL2 bool
}

// SolverConfig holds root finder limits.
type SolverConfig struct {
	Tolerance float64
	MaxIter   int
	BumpBps   float64
}

// PortfolioConfig holds aggregator limits.
type PortfolioConfig struct {
	Workers int
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Server: ServerConfig{
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Timeout:  getEnvAsDuration("REDIS_TIMEOUT", "500ms"),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},

		Conventions: ConventionsConfig{
			Source: getEnv("CONVENTIONS_SOURCE", "memory"),
			File:   getEnv("CONVENTIONS_FILE", ""),
		},

		Treasury: TreasuryConfig{
			Source:       getEnv("TREASURY_SOURCE", "textview"),
			BaseURL:      getEnv("TREASURY_BASE_URL", "https://home.treasury.gov/resource-center/data-chart-center/interest-rates/TextView"),
			RatePerSec:   getEnvAsFloat("TREASURY_RATE_PER_SEC", 2),
			LookbackDays: getEnvAsInt("TREASURY_LOOKBACK_DAYS", 10),
			Timeout:      getEnvAsDuration("TREASURY_TIMEOUT", "10s"),
		},

		Cache: CacheConfig{
			Capacity: getEnvAsInt("CACHE_CAPACITY", 4096),
			TTL:      getEnvAsDuration("CACHE_TTL", "5m"),
			RemoteL2: getEnvAsBool("CACHE_REMOTE_L2", false),
		},

		Solver: SolverConfig{
			Tolerance: getEnvAsFloat("SOLVER_TOLERANCE", 1e-8),
			MaxIter:   getEnvAsInt("SOLVER_MAX_ITER", 200),
			BumpBps:   getEnvAsFloat("SOLVER_BUMP_BPS", 1),
		},

		Portfolio: PortfolioConfig{
			Workers: getEnvAsInt("PORTFOLIO_WORKERS", 8),
		},

		SchedulerEnabled: getEnvAsBool("SCHEDULER_ENABLED", false),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Conventions.Source {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when CONVENTIONS_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("CONVENTIONS_SOURCE must be one of: memory, postgres")
	}

	switch c.Treasury.Source {
	case "textview", "none":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when TREASURY_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("TREASURY_SOURCE must be one of: textview, postgres, none")
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT and SERVER_SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.Redis.Enabled && (c.Redis.Timeout <= 0 || c.Redis.PoolSize <= 0) {
		return fmt.Errorf("REDIS_TIMEOUT and REDIS_POOL_SIZE must be > 0")
	}

	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("CACHE_CAPACITY must be > 0")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be > 0")
	}
	if c.Cache.RemoteL2 && !c.Redis.Enabled {
		return fmt.Errorf("CACHE_REMOTE_L2 requires REDIS_ENABLED=true")
	}
	if c.Solver.Tolerance <= 0 || c.Solver.MaxIter <= 0 {
		return fmt.Errorf("SOLVER_TOLERANCE and SOLVER_MAX_ITER must be > 0")
	}
	if c.Portfolio.Workers <= 0 {
		return fmt.Errorf("PORTFOLIO_WORKERS must be > 0")
	}

	return nil
}

// NeedsDatabase reports whether any configured source reads PostgreSQL.
func (c *Config) NeedsDatabase() bool {
	return c.Conventions.Source == "postgres" || c.Treasury.Source == "postgres"
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
