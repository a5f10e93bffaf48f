package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoading(t *testing.T) {
	t.Run("load from file", func(t *testing.T) {
		configContent := `
environment: test
port: 9999
log_level: debug

clickhouse:
  addr: "test-ch:9000"
  database: observability
  table: agent_spans

cache:
  addr: "test-redis:6379"
  query_ttl: 30
`
		tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		_, err = tmpFile.WriteString(configContent)
		require.NoError(t, err)
		tmpFile.Close()

		os.Setenv("CONFIG_PATH", tmpFile.Name())
		defer os.Unsetenv("CONFIG_PATH")

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test", config.Environment)
		assert.Equal(t, 9999, config.Port)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, "test-ch:9000", config.ClickHouse.Addr)
		assert.Equal(t, "observability", config.ClickHouse.Database)
		assert.Equal(t, 30, config.Cache.QueryTTL)
	})

	t.Run("defaults without file", func(t *testing.T) {
		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, config.Port)
		assert.Equal(t, "localhost:9000", config.ClickHouse.Addr)
		assert.Equal(t, "agent_spans", config.ClickHouse.Table)
		assert.Equal(t, 256, config.Cache.QueryCapacity)
		assert.InDelta(t, 0.3, config.Engine.MinCorrelationStrength, 1e-9)
		assert.InDelta(t, 0.5, config.Engine.SimilarityThreshold, 1e-9)
	})

	t.Run("env var precedence", func(t *testing.T) {
		os.Setenv("PORT", "7777")
		os.Setenv("LOG_LEVEL", "warn")
		os.Setenv("CLICKHOUSE_ADDR", "ch-prod:9440")
		defer func() {
			os.Unsetenv("PORT")
			os.Unsetenv("LOG_LEVEL")
			os.Unsetenv("CLICKHOUSE_ADDR")
		}()

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 7777, config.Port)
		assert.Equal(t, "warn", config.LogLevel)
		assert.Equal(t, "ch-prod:9440", config.ClickHouse.Addr)
	})

	t.Run("invalid log level rejected", func(t *testing.T) {
		os.Setenv("LOG_LEVEL", "verbose")
		defer os.Unsetenv("LOG_LEVEL")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidateAddr(t *testing.T) {
	assert.NoError(t, ValidateAddr("localhost:9000"))
	assert.NoError(t, ValidateAddr("10.0.0.1:6379"))
	assert.Error(t, ValidateAddr(""))
	assert.Error(t, ValidateAddr("no-port"))
	assert.Error(t, ValidateAddr(":9000"))
}
