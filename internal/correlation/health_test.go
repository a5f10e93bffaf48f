package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlens/agentlens-core/internal/models"
)

func TestHealthScore(t *testing.T) {
	assert.InDelta(t, 100.0, healthScore(0), 1e-9)
	assert.InDelta(t, 95.0, healthScore(0.1), 1e-9)
	assert.InDelta(t, 50.0, healthScore(1.0), 1e-9)
	// Rates above 2.0 cannot occur, but the clamp still holds.
	assert.InDelta(t, 0.0, healthScore(3.0), 1e-9)
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		name          string
		first, second models.HalfWindowStats
		want          models.HealthTrend
	}{
		{
			"degrading",
			models.HalfWindowStats{TotalSpans: 100, ErrorCount: 10},
			models.HalfWindowStats{TotalSpans: 100, ErrorCount: 20},
			models.TrendDegrading,
		},
		{
			"improving",
			models.HalfWindowStats{TotalSpans: 100, ErrorCount: 20},
			models.HalfWindowStats{TotalSpans: 100, ErrorCount: 10},
			models.TrendImproving,
		},
		{
			"small delta is stable",
			models.HalfWindowStats{TotalSpans: 100, ErrorCount: 10},
			models.HalfWindowStats{TotalSpans: 100, ErrorCount: 12},
			models.TrendStable,
		},
		{
			"empty halves are stable",
			models.HalfWindowStats{},
			models.HalfWindowStats{},
			models.TrendStable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trendOf(tt.first, tt.second))
		})
	}
}

func TestCategorizeComponentErrors(t *testing.T) {
	rows := []models.ComponentErrorCount{
		{ComponentType: "llm", StatusMessage: "request timed out after 30s", Count: 30},
		{ComponentType: "llm", StatusMessage: "upstream request timed out", Count: 5},
		{ComponentType: "llm", StatusMessage: "connection refused by host 10.0.0.1", Count: 10},
		{ComponentType: "tool", StatusMessage: "file not found: /tmp/x", Count: 2},
	}

	got := categorizeComponentErrors(rows)

	require.Len(t, got["llm"], 2)
	assert.Equal(t, models.CategoryTimeout, got["llm"][0].Category)
	assert.Equal(t, 35, got["llm"][0].Count)
	assert.Equal(t, models.CategoryConnection, got["llm"][1].Category)

	require.Len(t, got["tool"], 1)
	assert.Equal(t, models.CategoryNotFound, got["tool"][0].Category)
}

func TestCategorizeComponentErrors_CapsTopCategories(t *testing.T) {
	rows := []models.ComponentErrorCount{
		{ComponentType: "llm", StatusMessage: "request timed out", Count: 7},
		{ComponentType: "llm", StatusMessage: "connection refused", Count: 6},
		{ComponentType: "llm", StatusMessage: "invalid api key", Count: 5},
		{ComponentType: "llm", StatusMessage: "permission denied", Count: 4},
		{ComponentType: "llm", StatusMessage: "rate limit exceeded", Count: 3},
		{ComponentType: "llm", StatusMessage: "internal server error", Count: 2},
	}

	got := categorizeComponentErrors(rows)
	require.Len(t, got["llm"], maxTopErrorCategories)
	assert.Equal(t, models.CategoryTimeout, got["llm"][0].Category)
}

func TestAnalyzeComponentHealth(t *testing.T) {
	store := newFakeStore()
	store.stats = []models.ComponentStats{
		{ComponentType: "llm", TotalSpans: 100, ErrorCount: 40, AvgDurationMs: 900, AvgErrorDurationMs: 3000},
		{ComponentType: "tool", TotalSpans: 50, ErrorCount: 1, AvgDurationMs: 120, AvgErrorDurationMs: 400},
	}
	store.errRows = []models.ComponentErrorCount{
		{ComponentType: "llm", StatusMessage: "request timed out after 30s", Count: 40},
		{ComponentType: "tool", StatusMessage: "connection refused", Count: 1},
	}
	store.split = []models.ComponentStatsSplit{
		{
			ComponentType: "llm",
			FirstHalf:     models.HalfWindowStats{TotalSpans: 50, ErrorCount: 10},
			SecondHalf:    models.HalfWindowStats{TotalSpans: 50, ErrorCount: 30},
		},
		{
			ComponentType: "tool",
			FirstHalf:     models.HalfWindowStats{TotalSpans: 25, ErrorCount: 1},
			SecondHalf:    models.HalfWindowStats{TotalSpans: 25, ErrorCount: 0},
		},
	}
	a := newTestAnalyzer(t, store)

	health, err := a.AnalyzeComponentHealth(context.Background(), "proj-1", models.TimeWindow{Hours: 1}, DefaultHealthOptions())
	require.NoError(t, err)
	require.Len(t, health, 2)

	llm := health[0]
	assert.Equal(t, "llm", llm.ComponentType)
	assert.InDelta(t, 0.4, llm.ErrorRate, 1e-9)
	assert.InDelta(t, 80.0, llm.HealthScore, 1e-9)
	assert.Equal(t, models.TrendDegrading, llm.Trend)
	require.Len(t, llm.TopErrorCategories, 1)
	assert.Equal(t, models.CategoryTimeout, llm.TopErrorCategories[0].Category)

	tool := health[1]
	assert.Equal(t, "tool", tool.ComponentType)
	assert.InDelta(t, 0.02, tool.ErrorRate, 1e-9)
	assert.Equal(t, models.TrendStable, tool.Trend)
}

func TestAnalyzeComponentHealth_TrendDisabled(t *testing.T) {
	store := newFakeStore()
	store.stats = []models.ComponentStats{
		{ComponentType: "llm", TotalSpans: 10, ErrorCount: 2},
	}
	a := newTestAnalyzer(t, store)

	health, err := a.AnalyzeComponentHealth(context.Background(), "proj-1", models.TimeWindow{Hours: 1}, HealthOptions{IncludeTrend: false})
	require.NoError(t, err)
	require.Len(t, health, 1)
	assert.Empty(t, health[0].Trend)
	assert.Equal(t, 0, store.callCount("component_stats_split"))
}

func TestAnalyzeComponentHealth_NoComponents(t *testing.T) {
	a := newTestAnalyzer(t, newFakeStore())

	health, err := a.AnalyzeComponentHealth(context.Background(), "proj-1", models.TimeWindow{Hours: 1}, DefaultHealthOptions())
	require.NoError(t, err)
	assert.Empty(t, health)
}
