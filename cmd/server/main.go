package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentlens/agentlens-core/internal/api"
	"github.com/agentlens/agentlens-core/internal/config"
	"github.com/agentlens/agentlens-core/internal/correlation"
	"github.com/agentlens/agentlens-core/internal/embeddings"
	"github.com/agentlens/agentlens-core/internal/storage/clickhouse"
	"github.com/agentlens/agentlens-core/internal/tracing"
	"github.com/agentlens/agentlens-core/pkg/cache"
	"github.com/agentlens/agentlens-core/pkg/logger"
)

const version = "v0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	logg.Info("Starting AgentLens correlation engine", "version", version, "environment", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logg.Info("Shutdown signal received")
		cancel()
	}()

	// Distributed tracing (optional)
	if cfg.Monitoring.TracingEnabled {
		tp, err := tracing.NewTracerProvider("agentlens-core", version, cfg.Monitoring.OTLPEndpoint)
		if err != nil {
			logg.Fatal("Failed to initialize tracing", "error", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logg.Error("Failed to shut down tracer provider", "error", err)
			}
		}()
	}

	// Span store (ClickHouse)
	connCfg := &clickhouse.ConnectionConfig{
		Addr:         cfg.ClickHouse.Addr,
		Database:     cfg.ClickHouse.Database,
		Username:     cfg.ClickHouse.Username,
		Password:     cfg.ClickHouse.Password,
		MaxOpenConns: cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns: cfg.ClickHouse.MaxIdleConns,
		DialTimeout:  time.Duration(cfg.ClickHouse.DialTimeout) * time.Second,
		MaxRetries:   cfg.ClickHouse.MaxRetries,
	}
	conn, err := clickhouse.Connect(ctx, connCfg)
	if err != nil {
		logg.Fatal("Failed to connect to ClickHouse", "error", err, "addr", cfg.ClickHouse.Addr)
	}
	store := clickhouse.NewStore(conn, clickhouse.StoreConfig{
		Table:        cfg.ClickHouse.Table,
		QueryTimeout: time.Duration(cfg.ClickHouse.QueryTimeout) * time.Second,
	}, logg)
	defer store.Close()
	logg.Info("ClickHouse span store connected", "addr", cfg.ClickHouse.Addr, "table", cfg.ClickHouse.Table)

	// Embedding provider (optional; nil without an API key)
	provider := embeddings.NewProvider(embeddings.Config{
		APIKey:  cfg.Embeddings.APIKey,
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		Timeout: time.Duration(cfg.Embeddings.Timeout) * time.Second,
	}, logg)
	if provider != nil {
		logg.Info("Embedding provider configured", "model", cfg.Embeddings.Model)
	}

	// Correlation engine
	analyzer := correlation.NewAnalyzer(store, provider.EmbedFunc(), correlation.AnalyzerConfig{
		CacheCapacity: cfg.Cache.QueryCapacity,
		CacheTTL:      time.Duration(cfg.Cache.QueryTTL) * time.Second,
		Tuning:        engineTuning(cfg),
	}, logg)

	// Hot reload of engine tuning when a config file is in use
	if cfg.ConfigFile != "" {
		watcher := config.NewConfigWatcher(cfg.ConfigFile, logg)
		watcher.RegisterWatcher(func(next *config.Config) {
			analyzer.SetTuning(engineTuning(next))
			logg.Info("Engine tuning reloaded",
				"min_correlation_strength", next.Engine.MinCorrelationStrength,
				"min_frequency", next.Engine.MinFrequency,
				"max_patterns", next.Engine.MaxPatterns,
				"similarity_threshold", next.Engine.SimilarityThreshold)
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logg.Error("Configuration watcher failed", "error", err)
			}
		}()
	}

	// Response cache (optional Redis tier)
	respCache := cache.NewNoop()
	if cfg.Cache.Addr != "" {
		c, err := cache.NewRedis(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB,
			time.Duration(cfg.Cache.ResponseTTL)*time.Second, logg)
		if err != nil {
			logg.Warn("Response cache unavailable, continuing without it", "error", err)
		} else {
			respCache = c
			logg.Info("Response cache connected", "addr", cfg.Cache.Addr)
		}
	}

	apiServer := api.NewServer(cfg, logg, analyzer, conn, respCache, version)
	if err := apiServer.Start(ctx); err != nil {
		logg.Fatal("Server failed", "error", err)
	}

	logg.Info("AgentLens shutdown complete")
}

func engineTuning(cfg *config.Config) correlation.Tuning {
	return correlation.Tuning{
		MinCorrelationStrength: cfg.Engine.MinCorrelationStrength,
		MinFrequency:           cfg.Engine.MinFrequency,
		MaxPatterns:            cfg.Engine.MaxPatterns,
		SimilarityThreshold:    cfg.Engine.SimilarityThreshold,
	}
}
