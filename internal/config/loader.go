package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Environment variables
// 2. Configuration file (config.yaml, or CONFIG_PATH)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/agentlens/")
		v.AddConfigPath("./configs/")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AGENTLENS")

	setDefaults(v)

	// Config file is optional; env vars and defaults carry the rest.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	// ClickHouse defaults
	v.SetDefault("clickhouse.addr", "localhost:9000")
	v.SetDefault("clickhouse.database", "default")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.table", "agent_spans")
	v.SetDefault("clickhouse.max_open_conns", 10)
	v.SetDefault("clickhouse.max_idle_conns", 5)
	v.SetDefault("clickhouse.query_timeout", 30)
	v.SetDefault("clickhouse.dial_timeout", 10)
	v.SetDefault("clickhouse.max_retries", 3)

	// Cache defaults
	v.SetDefault("cache.query_capacity", 256)
	v.SetDefault("cache.query_ttl", 60)
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.response_ttl", 300)

	// Engine defaults
	v.SetDefault("engine.min_correlation_strength", 0.3)
	v.SetDefault("engine.min_frequency", 2)
	v.SetDefault("engine.max_patterns", 50)
	v.SetDefault("engine.similarity_threshold", 0.5)

	// Embeddings defaults
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.timeout", 30)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 3600)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.tracing_enabled", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4317")
}

// overrideWithEnvVars handles the short-form environment variables used in
// container deployments, which take precedence over the config file.
func overrideWithEnvVars(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("port", p)
		}
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}

	if addr := os.Getenv("CLICKHOUSE_ADDR"); addr != "" {
		v.Set("clickhouse.addr", addr)
	}

	if db := os.Getenv("CLICKHOUSE_DATABASE"); db != "" {
		v.Set("clickhouse.database", db)
	}

	if password := os.Getenv("CLICKHOUSE_PASSWORD"); password != "" {
		v.Set("clickhouse.password", password)
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		v.Set("cache.addr", addr)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		v.Set("embeddings.api_key", key)
	}

	if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
		v.Set("monitoring.otlp_endpoint", endpoint)
	}
}
