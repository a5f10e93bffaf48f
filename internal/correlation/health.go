package correlation

import (
	"context"
	"sort"
	"time"

	"github.com/agentlens/agentlens-core/internal/models"
	"github.com/agentlens/agentlens-core/internal/monitoring"
	"github.com/agentlens/agentlens-core/internal/patterns"
	"github.com/agentlens/agentlens-core/internal/tracing"
)

// trendStableBand is the error-rate delta within which a component counts
// as stable rather than improving or degrading.
const trendStableBand = 0.05

// maxTopErrorCategories caps the per-component category breakdown.
const maxTopErrorCategories = 5

// HealthOptions configures AnalyzeComponentHealth.
type HealthOptions struct {
	// IncludeTrend enables the split-window trend query. Default true.
	IncludeTrend bool
}

// DefaultHealthOptions returns the documented defaults.
func DefaultHealthOptions() HealthOptions {
	return HealthOptions{IncludeTrend: true}
}

// AnalyzeComponentHealth aggregates per-component span outcomes for the
// window into health scores, top error categories and, optionally, a
// half-window trend. Components are returned sorted by health score
// ascending so the sickest come first.
func (a *Analyzer) AnalyzeComponentHealth(ctx context.Context, projectID string, window models.TimeWindow, opts HealthOptions) ([]models.ComponentHealth, error) {
	ctx, span := tracing.StartSpan(ctx, "correlation.AnalyzeComponentHealth")
	defer span.End()
	start := time.Now()

	var health []models.ComponentHealth
	tr, err := a.resolveWindow(window)
	if err == nil {
		health, err = a.analyzeComponentHealth(ctx, projectID, tr, opts)
	}
	monitoring.RecordAnalysis("analyze_component_health", time.Since(start), err == nil)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return health, nil
}

func (a *Analyzer) analyzeComponentHealth(ctx context.Context, projectID string, tr models.TimeRange, opts HealthOptions) ([]models.ComponentHealth, error) {
	if projectID == "" {
		return nil, models.InvalidInput("project id is required")
	}

	stats, err := a.store.componentStats(ctx, projectID, tr)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, nil
	}

	errMessages, err := a.store.componentErrorMessages(ctx, projectID, tr)
	if err != nil {
		return nil, err
	}
	categories := categorizeComponentErrors(errMessages)

	trends := map[string]models.HealthTrend{}
	if opts.IncludeTrend {
		split, err := a.store.componentStatsSplit(ctx, projectID, tr)
		if err != nil {
			return nil, err
		}
		for _, s := range split {
			trends[s.ComponentType] = trendOf(s.FirstHalf, s.SecondHalf)
		}
	}

	health := make([]models.ComponentHealth, 0, len(stats))
	for _, s := range stats {
		var rate float64
		if s.TotalSpans > 0 {
			rate = float64(s.ErrorCount) / float64(s.TotalSpans)
		}
		health = append(health, models.ComponentHealth{
			ComponentType:      s.ComponentType,
			TotalSpans:         s.TotalSpans,
			ErrorCount:         s.ErrorCount,
			ErrorRate:          rate,
			AvgDurationMs:      s.AvgDurationMs,
			AvgErrorDurationMs: s.AvgErrorDurationMs,
			TopErrorCategories: categories[s.ComponentType],
			Trend:              trends[s.ComponentType],
			HealthScore:        healthScore(rate),
		})
	}

	sort.SliceStable(health, func(i, j int) bool {
		return health[i].HealthScore < health[j].HealthScore
	})

	a.logger.Debug("Component health analysis completed",
		"project_id", projectID,
		"components", len(health))

	return health, nil
}

// healthScore maps an error-rate fraction to a 0..100 score. A component
// at 2x the rate that zeroes the score still reports 0, not negative.
func healthScore(errorRate float64) float64 {
	score := 100 - errorRate*50
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// trendOf compares the error rates of the two window halves. Deltas inside
// the stable band are noise, not a trend.
func trendOf(first, second models.HalfWindowStats) models.HealthTrend {
	firstRate := halfRate(first)
	secondRate := halfRate(second)
	switch {
	case secondRate > firstRate+trendStableBand:
		return models.TrendDegrading
	case secondRate < firstRate-trendStableBand:
		return models.TrendImproving
	default:
		return models.TrendStable
	}
}

func halfRate(h models.HalfWindowStats) float64 {
	if h.TotalSpans == 0 {
		return 0
	}
	return float64(h.ErrorCount) / float64(h.TotalSpans)
}

// categorizeComponentErrors folds raw (component, status message) counts
// into per-component category tallies and keeps the top categories by
// count, ties broken by category name for determinism.
func categorizeComponentErrors(rows []models.ComponentErrorCount) map[string][]models.CategoryCount {
	tallies := map[string]map[models.ErrorCategory]int{}
	for _, row := range rows {
		msg := row.StatusMessage
		category := patterns.CategorizeError(&msg)
		if tallies[row.ComponentType] == nil {
			tallies[row.ComponentType] = map[models.ErrorCategory]int{}
		}
		tallies[row.ComponentType][category] += row.Count
	}

	out := make(map[string][]models.CategoryCount, len(tallies))
	for component, byCategory := range tallies {
		counts := make([]models.CategoryCount, 0, len(byCategory))
		for category, n := range byCategory {
			counts = append(counts, models.CategoryCount{Category: category, Count: n})
		}
		sort.SliceStable(counts, func(i, j int) bool {
			if counts[i].Count != counts[j].Count {
				return counts[i].Count > counts[j].Count
			}
			return counts[i].Category < counts[j].Category
		})
		if len(counts) > maxTopErrorCategories {
			counts = counts[:maxTopErrorCategories]
		}
		out[component] = counts
	}
	return out
}
