package correlation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentlens/agentlens-core/internal/models"
	"github.com/agentlens/agentlens-core/internal/monitoring"
	"github.com/agentlens/agentlens-core/internal/patterns"
	"github.com/agentlens/agentlens-core/internal/tracing"
	"github.com/agentlens/agentlens-core/pkg/logger"
)

// Tuning carries the deploy-time engine thresholds. They replace the
// documented defaults for request options that omit a value; zero fields
// fall back to those defaults. Reloadable at runtime via SetTuning.
type Tuning struct {
	MinCorrelationStrength float64
	MinFrequency           int
	MaxPatterns            int
	SimilarityThreshold    float64
}

// AnalyzerConfig tunes the correlation analyzer.
type AnalyzerConfig struct {
	// CacheCapacity bounds the store-query cache; 0 uses the default.
	CacheCapacity int
	// CacheTTL is how long cached store results stay fresh; 0 uses the
	// default 60s.
	CacheTTL time.Duration
	// DisableCache turns query memoization off entirely.
	DisableCache bool
	// Tuning seeds the engine thresholds applied to requests that omit
	// their own.
	Tuning Tuning
}

// Analyzer correlates failure patterns across traces for one analytical
// store. Safe for concurrent use: the query cache and the tuning values
// are the only shared mutable state and guard themselves.
type Analyzer struct {
	store  *cachedStore
	embed  patterns.EmbedFunc
	logger logger.Logger
	now    func() time.Time

	mu     sync.RWMutex
	tuning Tuning
}

// NewAnalyzer builds an analyzer over the given store. embed may be nil, in
// which case requests for embedding similarity fail with INVALID_INPUT.
func NewAnalyzer(store Store, embed patterns.EmbedFunc, cfg AnalyzerConfig, log logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	var cache *QueryCache
	if !cfg.DisableCache {
		cache = NewQueryCache(cfg.CacheCapacity, cfg.CacheTTL)
	}
	return &Analyzer{
		store:  newCachedStore(store, cache),
		embed:  embed,
		logger: log,
		now:    time.Now,
		tuning: cfg.Tuning,
	}
}

// ClearCache drops all memoized store results. Callers that need freshness
// inside the TTL use this.
func (a *Analyzer) ClearCache() {
	if a.store.cache != nil {
		a.store.cache.Clear()
	}
}

// SetTuning replaces the engine thresholds. Called by the config watcher
// when the configuration file changes; in-flight analyses keep the values
// they started with.
func (a *Analyzer) SetTuning(t Tuning) {
	a.mu.Lock()
	a.tuning = t
	a.mu.Unlock()
}

// fillOptions layers the configured tuning over request options that omit
// a value, then falls back to the documented defaults for anything still
// unset.
func (a *Analyzer) fillOptions(o FindOptions) FindOptions {
	a.mu.RLock()
	t := a.tuning
	a.mu.RUnlock()
	if o.MinCorrelationStrength <= 0 {
		o.MinCorrelationStrength = t.MinCorrelationStrength
	}
	if o.MinFrequency < 1 {
		o.MinFrequency = t.MinFrequency
	}
	if o.MaxPatterns <= 0 {
		o.MaxPatterns = t.MaxPatterns
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = t.SimilarityThreshold
	}
	return o.withDefaults()
}

// resolveWindow turns a relative or explicit window into an absolute range
// against the analyzer clock. Each public operation resolves exactly once
// so every sub-query of one call sees the same range.
func (a *Analyzer) resolveWindow(window models.TimeWindow) (models.TimeRange, error) {
	tr, err := window.Resolve(a.now())
	if err != nil {
		return models.TimeRange{}, models.NewEngineError(models.ErrCodeInvalidInput, "resolve time window", err)
	}
	return tr, nil
}

// FindOptions configures FindCorrelatedFailures.
type FindOptions struct {
	// MinCorrelationStrength is the floor below which pattern pairs are
	// not reported. Default 0.3.
	MinCorrelationStrength float64
	// MinFrequency drops patterns with fewer failures. Default 2.
	MinFrequency int
	// MaxPatterns caps the result at the highest-frequency patterns.
	// Default 50.
	MaxPatterns int
	// SimilarityThreshold for joining an existing pattern. Default 0.5.
	SimilarityThreshold float64
	// SimilarityMethod selects token or embedding comparison. Embedding
	// requires the analyzer to have been built with an embed function.
	SimilarityMethod patterns.SimilarityMethod
	// ComponentFilter restricts the failed-span query to one component
	// type.
	ComponentFilter *string
	// CategoryFilter keeps only patterns of one category.
	CategoryFilter *models.ErrorCategory
}

// DefaultFindOptions returns the documented defaults.
func DefaultFindOptions() FindOptions {
	return FindOptions{
		MinCorrelationStrength: 0.3,
		MinFrequency:           2,
		MaxPatterns:            50,
		SimilarityThreshold:    0.5,
		SimilarityMethod:       patterns.SimilarityToken,
	}
}

func (o FindOptions) withDefaults() FindOptions {
	if o.MinCorrelationStrength <= 0 {
		o.MinCorrelationStrength = 0.3
	}
	if o.MinFrequency < 1 {
		o.MinFrequency = 2
	}
	if o.MaxPatterns <= 0 {
		o.MaxPatterns = 50
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = 0.5
	}
	if o.SimilarityMethod == "" {
		o.SimilarityMethod = patterns.SimilarityToken
	}
	return o
}

// FindCorrelatedFailures queries all failed spans in the window, clusters
// them into cross-trace patterns, and computes pairwise Phi correlations
// over trace membership. The correlation list is sorted by strength
// descending and the pattern count never exceeds MaxPatterns.
func (a *Analyzer) FindCorrelatedFailures(ctx context.Context, projectID string, window models.TimeWindow, opts FindOptions) (*models.CorrelatedFailuresResult, error) {
	ctx, span := tracing.StartSpan(ctx, "correlation.FindCorrelatedFailures")
	defer span.End()
	start := time.Now()

	var result *models.CorrelatedFailuresResult
	tr, err := a.resolveWindow(window)
	if err == nil {
		result, err = a.findCorrelatedFailures(ctx, projectID, tr, a.fillOptions(opts))
	}
	monitoring.RecordAnalysis("find_correlated_failures", time.Since(start), err == nil)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (a *Analyzer) findCorrelatedFailures(ctx context.Context, projectID string, tr models.TimeRange, opts FindOptions) (*models.CorrelatedFailuresResult, error) {
	if projectID == "" {
		return nil, models.InvalidInput("project id is required")
	}
	if opts.SimilarityMethod == patterns.SimilarityEmbedding && a.embed == nil {
		return nil, models.InvalidInput("embedding similarity requested but no embedding function is configured")
	}

	records, err := a.store.failedSpans(ctx, projectID, tr, opts.ComponentFilter)
	if err != nil {
		return nil, err
	}
	counts, err := a.store.traceCounts(ctx, projectID, tr)
	if err != nil {
		return nil, err
	}

	clusterOpts := patterns.ClusterOptions{
		MinFrequency:        opts.MinFrequency,
		MaxPatterns:         opts.MaxPatterns,
		SimilarityThreshold: opts.SimilarityThreshold,
		Method:              opts.SimilarityMethod,
	}
	var clustered *patterns.ClusterResult
	if opts.SimilarityMethod == patterns.SimilarityEmbedding {
		clustered, err = patterns.ClusterFailuresWithEmbeddings(ctx, records, a.embed, clusterOpts)
	} else {
		clustered, err = patterns.ClusterFailures(records, clusterOpts)
	}
	if err != nil {
		return nil, err
	}

	cps, traces := buildCorrelatedPatterns(records, clustered)
	if opts.CategoryFilter != nil {
		cps, traces = filterByCategory(cps, traces, *opts.CategoryFilter)
	}

	correlations := computeCorrelations(cps, traces, counts.TotalTraces, opts.MinCorrelationStrength)

	result := &models.CorrelatedFailuresResult{
		Patterns:         cps,
		Correlations:     correlations,
		TotalFailures:    clustered.TotalFailures,
		UnclusteredCount: clustered.UnclusteredCount,
		Summary: fmt.Sprintf(
			"%d failed spans across %d traces in the window; %d recurring patterns, %d correlations at or above %.2f",
			clustered.TotalFailures, counts.ErrorTraces, len(cps), len(correlations), opts.MinCorrelationStrength),
	}

	a.logger.Debug("Correlated failure discovery completed",
		"project_id", projectID,
		"failures", clustered.TotalFailures,
		"patterns", len(cps),
		"correlations", len(correlations))

	return result, nil
}

// buildCorrelatedPatterns lifts plain failure patterns into correlated
// patterns by recovering trace membership, hour-bucketed occurrence
// histograms, and affected components/models from the cluster members.
func buildCorrelatedPatterns(records []models.FailureRecord, cr *patterns.ClusterResult) ([]*models.CorrelatedPattern, []patternTraces) {
	cps := make([]*models.CorrelatedPattern, 0, len(cr.Patterns))
	traces := make([]patternTraces, 0, len(cr.Patterns))

	for i, p := range cr.Patterns {
		cp := &models.CorrelatedPattern{
			FailurePattern:     *p,
			HourlyDistribution: make(map[int64]int),
			Correlations:       make(map[string]float64),
		}
		pt := patternTraces{
			set:   make(map[string]struct{}),
			first: make(map[string]time.Time),
		}

		modelSeen := make(map[string]struct{})
		for _, idx := range cr.Members[i] {
			r := records[idx]
			if _, ok := pt.set[r.TraceID]; !ok {
				pt.set[r.TraceID] = struct{}{}
				cp.TraceIDs = append(cp.TraceIDs, r.TraceID)
			}
			if existing, ok := pt.first[r.TraceID]; !ok || r.Timestamp.Before(existing) {
				pt.first[r.TraceID] = r.Timestamp
			}
			hour := r.Timestamp.Truncate(time.Hour).Unix()
			cp.HourlyDistribution[hour]++
			if r.Model != nil {
				if _, ok := modelSeen[*r.Model]; !ok {
					modelSeen[*r.Model] = struct{}{}
					cp.AffectedModels = append(cp.AffectedModels, *r.Model)
				}
			}
		}
		cp.AffectedComponents = append([]string(nil), p.ComponentTypes...)

		cps = append(cps, cp)
		traces = append(traces, pt)
	}
	return cps, traces
}

func filterByCategory(cps []*models.CorrelatedPattern, traces []patternTraces, category models.ErrorCategory) ([]*models.CorrelatedPattern, []patternTraces) {
	var outP []*models.CorrelatedPattern
	var outT []patternTraces
	for i, cp := range cps {
		if cp.Category == category {
			outP = append(outP, cp)
			outT = append(outT, traces[i])
		}
	}
	return outP, outT
}

// AnalyzeTimeWindow runs correlated-failure discovery, systemic issue
// identification, component health analysis, and the raw trace-count query
// concurrently and assembles the full result. Fail-fast: the first error
// from any required query fails the whole call; there is no partial-result
// mode.
func (a *Analyzer) AnalyzeTimeWindow(ctx context.Context, projectID string, window models.TimeWindow) (*models.TimeWindowAnalysis, error) {
	ctx, span := tracing.StartSpan(ctx, "correlation.AnalyzeTimeWindow")
	defer span.End()
	start := time.Now()

	var analysis *models.TimeWindowAnalysis
	tr, err := a.resolveWindow(window)
	if err == nil {
		analysis, err = a.analyzeTimeWindow(ctx, projectID, tr)
	}
	monitoring.RecordAnalysis("analyze_time_window", time.Since(start), err == nil)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return analysis, nil
}

func (a *Analyzer) analyzeTimeWindow(ctx context.Context, projectID string, tr models.TimeRange) (*models.TimeWindowAnalysis, error) {
	if projectID == "" {
		return nil, models.InvalidInput("project id is required")
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		found    *models.CorrelatedFailuresResult
		issues   []models.SystemicIssue
		health   []models.ComponentHealth
		counts   models.TraceCounts
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		r, err := a.findCorrelatedFailures(ctx, projectID, tr, a.fillOptions(FindOptions{}))
		if err != nil {
			fail(err)
			return
		}
		found = r
	}()
	go func() {
		defer wg.Done()
		r, err := a.identifySystemicIssues(ctx, projectID, tr, DefaultIssueOptions())
		if err != nil {
			fail(err)
			return
		}
		issues = r
	}()
	go func() {
		defer wg.Done()
		r, err := a.analyzeComponentHealth(ctx, projectID, tr, DefaultHealthOptions())
		if err != nil {
			fail(err)
			return
		}
		health = r
	}()
	go func() {
		defer wg.Done()
		c, err := a.store.traceCounts(ctx, projectID, tr)
		if err != nil {
			fail(err)
			return
		}
		counts = c
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	errorRate := 0.0
	if counts.TotalTraces > 0 {
		errorRate = float64(counts.ErrorTraces) / float64(counts.TotalTraces)
	}

	analysis := &models.TimeWindowAnalysis{
		StartTime:       tr.Start,
		EndTime:         tr.End,
		TotalTraces:     counts.TotalTraces,
		ErrorTraces:     counts.ErrorTraces,
		ErrorRate:       errorRate,
		TotalFailures:   found.TotalFailures,
		Patterns:        found.Patterns,
		Issues:          issues,
		ComponentHealth: health,
		Correlations:    found.Correlations,
		Summary: fmt.Sprintf(
			"%d of %d traces failed (%.1f%%) between %s and %s; %d patterns, %d systemic issues",
			counts.ErrorTraces, counts.TotalTraces, errorRate*100,
			tr.Start.Format(time.RFC3339), tr.End.Format(time.RFC3339),
			len(found.Patterns), len(issues)),
	}

	a.logger.Info("Time window analysis completed",
		"project_id", projectID,
		"total_traces", counts.TotalTraces,
		"error_traces", counts.ErrorTraces,
		"patterns", len(found.Patterns),
		"issues", len(issues))

	return analysis, nil
}
