package config

import (
	"fmt"
	"net"
)

// ValidateAddr validates a host:port address.
func ValidateAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		return fmt.Errorf("address %q must include host", addr)
	}
	if port == "" {
		return fmt.Errorf("address %q must include port", addr)
	}
	return nil
}

func validateConfig(c *Config) error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	if err := ValidateAddr(c.ClickHouse.Addr); err != nil {
		return fmt.Errorf("clickhouse: %w", err)
	}
	if c.ClickHouse.Table == "" {
		return fmt.Errorf("clickhouse: table cannot be empty")
	}
	if c.ClickHouse.QueryTimeout <= 0 {
		return fmt.Errorf("clickhouse: query_timeout must be positive")
	}

	if c.Cache.Addr != "" {
		if err := ValidateAddr(c.Cache.Addr); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	if c.Cache.QueryCapacity < 0 {
		return fmt.Errorf("cache: query_capacity cannot be negative")
	}

	if c.Engine.MinCorrelationStrength < 0 || c.Engine.MinCorrelationStrength > 1 {
		return fmt.Errorf("engine: min_correlation_strength must be in [0,1]")
	}
	if c.Engine.SimilarityThreshold <= 0 || c.Engine.SimilarityThreshold > 1 {
		return fmt.Errorf("engine: similarity_threshold must be in (0,1]")
	}
	if c.Engine.MinFrequency < 1 {
		return fmt.Errorf("engine: min_frequency must be at least 1")
	}

	if c.Monitoring.TracingEnabled {
		if err := ValidateAddr(c.Monitoring.OTLPEndpoint); err != nil {
			return fmt.Errorf("monitoring: %w", err)
		}
	}

	return nil
}
