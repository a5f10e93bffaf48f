package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentlens/agentlens-core/internal/api/handlers"
	"github.com/agentlens/agentlens-core/internal/api/middleware"
	"github.com/agentlens/agentlens-core/internal/config"
	"github.com/agentlens/agentlens-core/internal/monitoring"
	"github.com/agentlens/agentlens-core/pkg/cache"
	"github.com/agentlens/agentlens-core/pkg/logger"
)

// Server is the REST API over the correlation engine.
type Server struct {
	config     *config.Config
	logger     logger.Logger
	engine     handlers.Engine
	store      handlers.Pinger
	respCache  cache.Cache
	version    string
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	engine handlers.Engine,
	store handlers.Pinger,
	respCache cache.Cache,
	version string,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:    cfg,
		logger:    log,
		engine:    engine,
		store:     store,
		respCache: respCache,
		version:   version,
		router:    gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(s.logger))

	if s.config.Monitoring.PrometheusEnabled {
		s.router.Use(monitoring.HTTPMetricsMiddleware())
		monitoring.SetupPrometheusMetrics(s.router)
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.store, s.version, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	analysisHandler := handlers.NewAnalysisHandler(
		s.engine,
		s.respCache,
		time.Duration(s.config.Cache.ResponseTTL)*time.Second,
		s.logger,
	)

	v1 := s.router.Group("/api/v1")
	v1.POST("/correlations/find", analysisHandler.HandleFindCorrelations)
	v1.POST("/issues/identify", analysisHandler.HandleIdentifyIssues)
	v1.POST("/health/components", analysisHandler.HandleComponentHealth)
	v1.POST("/analysis/window", analysisHandler.HandleAnalyzeWindow)
}

// Start runs the HTTP server until the context is canceled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("AgentLens API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down AgentLens API server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
