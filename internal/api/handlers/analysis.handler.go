package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentlens/agentlens-core/internal/correlation"
	"github.com/agentlens/agentlens-core/internal/models"
	"github.com/agentlens/agentlens-core/internal/patterns"
	"github.com/agentlens/agentlens-core/pkg/cache"
	"github.com/agentlens/agentlens-core/pkg/logger"
)

// Engine is the analysis surface exposed over HTTP. The correlation
// analyzer implements it; tests substitute fakes.
type Engine interface {
	FindCorrelatedFailures(ctx context.Context, projectID string, window models.TimeWindow, opts correlation.FindOptions) (*models.CorrelatedFailuresResult, error)
	IdentifySystemicIssues(ctx context.Context, projectID string, window models.TimeWindow, opts correlation.IssueOptions) ([]models.SystemicIssue, error)
	AnalyzeComponentHealth(ctx context.Context, projectID string, window models.TimeWindow, opts correlation.HealthOptions) ([]models.ComponentHealth, error)
	AnalyzeTimeWindow(ctx context.Context, projectID string, window models.TimeWindow) (*models.TimeWindowAnalysis, error)
}

// AnalysisHandler serves the failure-correlation endpoints.
type AnalysisHandler struct {
	engine      Engine
	respCache   cache.Cache
	responseTTL time.Duration
	logger      logger.Logger
}

func NewAnalysisHandler(engine Engine, respCache cache.Cache, responseTTL time.Duration, log logger.Logger) *AnalysisHandler {
	if respCache == nil {
		respCache = cache.NewNoop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AnalysisHandler{
		engine:      engine,
		respCache:   respCache,
		responseTTL: responseTTL,
		logger:      log,
	}
}

// CorrelationsRequest is the body of POST /api/v1/correlations/find.
type CorrelationsRequest struct {
	ProjectID              string            `json:"projectId" binding:"required"`
	Window                 models.TimeWindow `json:"window"`
	MinCorrelationStrength float64           `json:"minCorrelationStrength"`
	MinFrequency           int               `json:"minFrequency"`
	MaxPatterns            int               `json:"maxPatterns"`
	SimilarityThreshold    float64           `json:"similarityThreshold"`
	SimilarityMethod       string            `json:"similarityMethod"`
	ComponentFilter        *string           `json:"componentFilter,omitempty"`
	CategoryFilter         *string           `json:"categoryFilter,omitempty"`
}

// HandleFindCorrelations handles POST /api/v1/correlations/find.
func (h *AnalysisHandler) HandleFindCorrelations(c *gin.Context) {
	var req CorrelationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	opts := correlation.FindOptions{
		MinCorrelationStrength: req.MinCorrelationStrength,
		MinFrequency:           req.MinFrequency,
		MaxPatterns:            req.MaxPatterns,
		SimilarityThreshold:    req.SimilarityThreshold,
		SimilarityMethod:       patterns.SimilarityMethod(req.SimilarityMethod),
		ComponentFilter:        req.ComponentFilter,
	}
	if req.CategoryFilter != nil {
		cat := models.ErrorCategory(*req.CategoryFilter)
		opts.CategoryFilter = &cat
	}

	result, err := h.engine.FindCorrelatedFailures(c.Request.Context(), req.ProjectID, req.Window, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// IssuesRequest is the body of POST /api/v1/issues/identify.
type IssuesRequest struct {
	ProjectID         string            `json:"projectId" binding:"required"`
	Window            models.TimeWindow `json:"window"`
	MinOccurrences    int               `json:"minOccurrences"`
	MinAffectedTraces int               `json:"minAffectedTraces"`
	Severity          *string           `json:"severity,omitempty"`
	ComponentFilter   *string           `json:"componentFilter,omitempty"`
}

// HandleIdentifyIssues handles POST /api/v1/issues/identify.
func (h *AnalysisHandler) HandleIdentifyIssues(c *gin.Context) {
	var req IssuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	opts := correlation.IssueOptions{
		MinOccurrences:    req.MinOccurrences,
		MinAffectedTraces: req.MinAffectedTraces,
		ComponentFilter:   req.ComponentFilter,
	}
	if req.Severity != nil {
		severity := models.IssueSeverity(*req.Severity)
		switch severity {
		case models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow:
			opts.SeverityFilter = &severity
		default:
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": fmt.Sprintf("unknown severity %q", *req.Severity)})
			return
		}
	}

	issues, err := h.engine.IdentifySystemicIssues(c.Request.Context(), req.ProjectID, req.Window, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"issues": issues}})
}

// HealthRequest is the body of POST /api/v1/health/components.
type HealthRequest struct {
	ProjectID    string            `json:"projectId" binding:"required"`
	Window       models.TimeWindow `json:"window"`
	IncludeTrend *bool             `json:"includeTrend,omitempty"`
}

// HandleComponentHealth handles POST /api/v1/health/components.
func (h *AnalysisHandler) HandleComponentHealth(c *gin.Context) {
	var req HealthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	opts := correlation.DefaultHealthOptions()
	if req.IncludeTrend != nil {
		opts.IncludeTrend = *req.IncludeTrend
	}

	health, err := h.engine.AnalyzeComponentHealth(c.Request.Context(), req.ProjectID, req.Window, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"components": health}})
}

// WindowRequest is the body of POST /api/v1/analysis/window.
type WindowRequest struct {
	ProjectID string            `json:"projectId" binding:"required"`
	Window    models.TimeWindow `json:"window"`
}

// HandleAnalyzeWindow handles POST /api/v1/analysis/window. Full window
// analyses are the most expensive call, so responses for explicit windows
// are memoized in the response cache.
func (h *AnalysisHandler) HandleAnalyzeWindow(c *gin.Context) {
	var req WindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	// Relative windows move with the clock; only explicit ranges are safe
	// to cache.
	cacheable := req.Window.StartTime != nil && req.Window.EndTime != nil
	key := windowCacheKey(req)
	if cacheable {
		if cached, err := h.respCache.Get(c.Request.Context(), key); err == nil {
			var analysis models.TimeWindowAnalysis
			if err := json.Unmarshal(cached, &analysis); err == nil {
				c.Header("X-Cache", "HIT")
				c.JSON(http.StatusOK, gin.H{"status": "success", "data": analysis})
				return
			}
		}
	}

	analysis, err := h.engine.AnalyzeTimeWindow(c.Request.Context(), req.ProjectID, req.Window)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if cacheable {
		if err := h.respCache.Set(c.Request.Context(), key, analysis, h.responseTTL); err != nil {
			h.logger.Warn("Failed to cache window analysis", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": analysis})
}

func windowCacheKey(req WindowRequest) string {
	spec, _ := json.Marshal(req.Window)
	return fmt.Sprintf("analysis:window:%s:%s", req.ProjectID, spec)
}

// respondError maps engine error codes to HTTP statuses.
func (h *AnalysisHandler) respondError(c *gin.Context, err error) {
	code := models.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case models.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case models.ErrCodeQueryTimeout:
		status = http.StatusGatewayTimeout
	case models.ErrCodeConnectionError:
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		h.logger.Error("Analysis request failed", "code", code, "error", err)
	}
	c.JSON(status, gin.H{"status": "error", "code": code, "error": err.Error()})
}
