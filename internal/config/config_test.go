package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("ZOMBIE_PROVIDER")
	os.Unsetenv("ZOMBIE_SPAWN_CONCURRENCY")
	os.Unsetenv("ZOMBIE_NODE_SPAWN_TIMEOUT_SECONDS")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "docker", cfg.Provider)
	assert.Equal(t, 100, cfg.SpawnConcurrency)
	assert.Equal(t, 600, cfg.NodeSpawnTimeoutS)
	assert.Equal(t, 3600, cfg.NetworkTimeoutS)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost:7233", cfg.TemporalAddress)
}

func TestLoad_AllEnvVars(t *testing.T) {
	t.Setenv("ZOMBIE_PROVIDER", "native")
	t.Setenv("ZOMBIE_SPAWN_CONCURRENCY", "4")
	t.Setenv("ZOMBIE_NODE_SPAWN_TIMEOUT_SECONDS", "30")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TEMPORAL_ADDRESS", "temporal.example.com:7233")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "native", cfg.Provider)
	assert.Equal(t, 4, cfg.SpawnConcurrency)
	assert.Equal(t, 30, cfg.NodeSpawnTimeoutS)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "temporal.example.com:7233", cfg.TemporalAddress)
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := &Config{Provider: "bogus", SpawnConcurrency: 1}
	err := cfg.Validate("spawner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZOMBIE_PROVIDER")
}

func TestValidate_Worker_MissingTemporalAddress(t *testing.T) {
	cfg := &Config{Provider: "docker", SpawnConcurrency: 1}
	err := cfg.Validate("worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPORAL_ADDRESS")
}

func TestValidate_Spawner_MissingBaseDir(t *testing.T) {
	cfg := &Config{Provider: "docker", SpawnConcurrency: 1}
	err := cfg.Validate("spawner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZOMBIE_BASE_DIR")
}

func TestValidate_AllPresent(t *testing.T) {
	cfg := &Config{
		Provider:         "docker",
		SpawnConcurrency: 100,
		TemporalAddress:  "localhost:7233",
		BaseDir:          "/tmp/zombienet",
	}
	assert.NoError(t, cfg.Validate("worker"))
	assert.NoError(t, cfg.Validate("spawner"))
}
