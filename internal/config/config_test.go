package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "ring-snapshots", cfg.Kafka.Topic)
	assert.Equal(t, "challenge-consumer", cfg.Kafka.GroupID)
	assert.Equal(t, 15*time.Minute, cfg.Rollover.Interval)
	assert.True(t, cfg.Rollover.Enabled)
	assert.Equal(t, 600.0, cfg.Challenge.DefaultMaxDailyPoints)
	assert.Equal(t, 50, cfg.Challenge.DirectoryLimit)
}

func TestLoad_AppliesDefaultsToMissingFields(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
challenge:
  default_max_daily_points: 450
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 450.0, cfg.Challenge.DefaultMaxDailyPoints)
	// Untouched sections fall back to defaults
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 100, cfg.Kafka.BatchSize)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6380")

	path := writeConfig(t, `
postgres:
  host: db.internal
  user: challenges
  password: ${TEST_PG_PASSWORD}
  database: challenges
redis:
  addr: ${TEST_REDIS_ADDR}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Postgres.Password)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "challenges",
		Password: "pw",
		Database: "challenges",
	}

	assert.Equal(t,
		"postgres://challenges:pw@db.internal:5433/challenges?sslmode=disable",
		cfg.ConnectionString(),
	)

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.ConnectionString(), "sslmode=require")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
