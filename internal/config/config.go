package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	ClickHouse ClickHouseConfig `mapstructure:"clickhouse" yaml:"clickhouse"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings" yaml:"embeddings"`
	CORS       CORSConfig       `mapstructure:"cors" yaml:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`

	// ConfigFile is the file the configuration was loaded from, empty
	// when only env vars and defaults applied. Hot reload watches it.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// ClickHouseConfig points the engine at the span store.
type ClickHouseConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	Database     string `mapstructure:"database" yaml:"database"`
	Username     string `mapstructure:"username" yaml:"username"`
	Password     string `mapstructure:"password" yaml:"password"`
	Table        string `mapstructure:"table" yaml:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	// QueryTimeout in seconds, enforced client-side and server-side.
	QueryTimeout int `mapstructure:"query_timeout" yaml:"query_timeout"`
	// DialTimeout in seconds.
	DialTimeout int `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	MaxRetries  int `mapstructure:"max_retries" yaml:"max_retries"`
}

// CacheConfig controls both cache tiers: the in-process store-query cache
// and the optional Redis-backed response cache.
type CacheConfig struct {
	// Query cache (in-process, bounded TTL map).
	QueryCapacity int `mapstructure:"query_capacity" yaml:"query_capacity"`
	// QueryTTL in seconds.
	QueryTTL int `mapstructure:"query_ttl" yaml:"query_ttl"`
	// Response cache (Redis). Empty Addr disables it.
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	// ResponseTTL in seconds.
	ResponseTTL int `mapstructure:"response_ttl" yaml:"response_ttl"`
}

// EngineConfig carries correlation engine tunables.
type EngineConfig struct {
	MinCorrelationStrength float64 `mapstructure:"min_correlation_strength" yaml:"min_correlation_strength"`
	MinFrequency           int     `mapstructure:"min_frequency" yaml:"min_frequency"`
	MaxPatterns            int     `mapstructure:"max_patterns" yaml:"max_patterns"`
	SimilarityThreshold    float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
}

// EmbeddingsConfig configures the OpenAI-compatible embedding provider.
// An empty api_key leaves embedding similarity unavailable.
type EmbeddingsConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
	// Timeout in seconds.
	Timeout int `mapstructure:"timeout" yaml:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

type MonitoringConfig struct {
	Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath       string `mapstructure:"metrics_path" yaml:"metrics_path"`
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled" yaml:"prometheus_enabled"`
	TracingEnabled    bool   `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint      string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
}
