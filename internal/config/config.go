// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the process-wide configuration for both the spawner CLI and
// the Temporal worker that backs the scheduler.
type Config struct {
	Provider              string // ZOMBIE_PROVIDER: native|docker|k8s
	SpawnConcurrency      int    // ZOMBIE_SPAWN_CONCURRENCY
	NodeSpawnTimeoutS     int    // ZOMBIE_NODE_SPAWN_TIMEOUT_SECONDS
	NetworkTimeoutS       int    // ZOMBIE_NETWORK_TIMEOUT_SECONDS
	RemoveTgzAfterExtract bool   // ZOMBIE_RM_TGZ_AFTER_EXTRACT

	PolkadotImage string
	CumulusImage  string
	MalusImage    string
	ColImage      string

	TemporalAddress        string
	TemporalTaskQueue      string
	TemporalTLSCert        string
	TemporalTLSKey         string
	TemporalTLSCACert      string
	TemporalTLSServerName  string
	MetricsListenAddr      string
	BaseDir                string
	LogLevel               string
}

// Load builds a Config from the environment, applying the defaults
// documented in spec.md §6.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:              getEnv("ZOMBIE_PROVIDER", "docker"),
		SpawnConcurrency:      getEnvInt("ZOMBIE_SPAWN_CONCURRENCY", 100),
		NodeSpawnTimeoutS:     getEnvInt("ZOMBIE_NODE_SPAWN_TIMEOUT_SECONDS", 600),
		NetworkTimeoutS:       getEnvInt("ZOMBIE_NETWORK_TIMEOUT_SECONDS", 3600),
		RemoveTgzAfterExtract: getEnvBool("ZOMBIE_RM_TGZ_AFTER_EXTRACT", false),
		PolkadotImage:         getEnv("POLKADOT_IMAGE", "parity/polkadot:latest"),
		CumulusImage:          getEnv("CUMULUS_IMAGE", "parity/polkadot-parachain:latest"),
		MalusImage:            getEnv("MALUS_IMAGE", "parity/malus:latest"),
		ColImage:              getEnv("COL_IMAGE", ""),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue:     getEnv("ZOMBIE_TASK_QUEUE", "zombienet-tasks"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
		MetricsListenAddr:     getEnv("METRICS_LISTEN_ADDR", ""),
		BaseDir:               getEnv("ZOMBIE_BASE_DIR", "/tmp/zombienet"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// Validate rejects configuration that is unusable for the given process role
// ("spawner" or "worker").
func (c *Config) Validate(role string) error {
	switch c.Provider {
	case "native", "docker", "k8s":
	default:
		return fmt.Errorf("invalid ZOMBIE_PROVIDER %q: must be native, docker or k8s", c.Provider)
	}
	if c.SpawnConcurrency < 1 {
		return fmt.Errorf("ZOMBIE_SPAWN_CONCURRENCY must be >= 1, got %d", c.SpawnConcurrency)
	}
	switch role {
	case "worker":
		if c.TemporalAddress == "" {
			return fmt.Errorf("TEMPORAL_ADDRESS is required for the worker role")
		}
	case "spawner":
		if c.BaseDir == "" {
			return fmt.Errorf("ZOMBIE_BASE_DIR is required for the spawner role")
		}
	default:
		return fmt.Errorf("unknown process role %q", role)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
