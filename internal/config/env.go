package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables recognised by LoadFromEnv.
const (
	EnvModelPath       = "RISK_MODEL_PATH"
	EnvMetricsEndpoint = "RISK_METRICS_ENDPOINT"
	EnvListenAddr      = "RISK_LISTEN_ADDR"
	EnvLogLevel        = "RISK_LOG_LEVEL"
	EnvUseMemory       = "RISK_USE_MEMORY"
	EnvPostgresDSN     = "POSTGRES_DSN"
	EnvClickHouseDSN   = "CLICKHOUSE_DSN"
)

// LoadFromEnv applies environment overrides to cfg.
// Setting a storage DSN switches off in-memory storage unless
// RISK_USE_MEMORY says otherwise.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv(EnvModelPath); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv(EnvMetricsEndpoint); v != "" {
		cfg.Metrics.Endpoint = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}

	pg, ch := os.Getenv(EnvPostgresDSN), os.Getenv(EnvClickHouseDSN)
	if pg != "" {
		cfg.Storage.PostgresDSN = pg
	}
	if ch != "" {
		cfg.Storage.ClickHouseDSN = ch
	}
	if pg != "" && ch != "" {
		cfg.Storage.UseMemory = false
	}
	if v := os.Getenv(EnvUseMemory); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.UseMemory = b
		}
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvFile sets variables from a KEY=VALUE file without overriding ones
// already present in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}
	}
	return nil
}
