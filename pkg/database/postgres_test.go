package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondlab/pkg/config"
)

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNew(t *testing.T) {
	cfg := integrationConfig(t)

	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, db.Ping(ctx))
}

func TestHealthCheck(t *testing.T) {
	cfg := integrationConfig(t)

	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)

	assert.True(t, status.Healthy)
	assert.Greater(t, status.Stats.MaxConns, int32(0))
	assert.Len(t, status.Tables, len(referenceTables))
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	cfg := integrationConfig(t)

	db, err := New(cfg)
	require.NoError(t, err)

	db.Close()
	db.Close()
}
