package correlation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlens/agentlens-core/internal/models"
)

func TestComputeSeverity(t *testing.T) {
	tests := []struct {
		name      string
		frequency int
		traces    int
		category  models.ErrorCategory
		want      models.IssueSeverity
	}{
		{"rare benign failure", 2, 1, models.CategoryValidation, models.SeverityLow},
		{"recurring failure", 3, 2, models.CategoryTimeout, models.SeverityMedium},
		{"widespread failure", 10, 5, models.CategoryTimeout, models.SeverityCritical},
		{"server errors escalate", 5, 3, models.CategoryServerError, models.SeverityCritical},
		{"same counts stay lower without boost", 5, 3, models.CategoryTimeout, models.SeverityHigh},
		{"auth failures escalate", 4, 2, models.CategoryAuthentication, models.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, score := computeSeverity(tt.frequency, tt.traces, tt.category)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}

func TestComputeImpactScore_FrequencyMonotonic(t *testing.T) {
	now := testBase.Add(time.Hour)
	window := models.TimeRange{Start: testBase, End: now}
	first := testBase.Add(5 * time.Minute)
	last := testBase.Add(30 * time.Minute)

	low := computeImpactScore(2, first, last, window, now)
	high := computeImpactScore(50, first, last, window, now)
	assert.Greater(t, high, low)
}

func TestComputeImpactScore_RecencyDecay(t *testing.T) {
	now := testBase.Add(48 * time.Hour)
	window := models.TimeRange{Start: testBase, End: now}

	recent := computeImpactScore(5, testBase, now.Add(-time.Minute), window, now)
	stale := computeImpactScore(5, testBase, testBase.Add(time.Minute), window, now)
	assert.Greater(t, recent, stale)
}

func TestComputeImpactScore_ZeroWidthWindow(t *testing.T) {
	now := testBase
	window := models.TimeRange{Start: testBase, End: testBase}

	// A pattern with any span gets full persistence weight; an instant
	// pattern gets none.
	spanning := computeImpactScore(1, testBase.Add(-time.Minute), testBase, window, now)
	instant := computeImpactScore(1, testBase, testBase, window, now)
	assert.InDelta(t, impactPersistenceWeight, spanning-instant, 1e-9)
}

func TestHasHourlySpike(t *testing.T) {
	assert.False(t, hasHourlySpike(nil))
	assert.False(t, hasHourlySpike(map[int64]int{0: 2, 3600: 2}))
	assert.False(t, hasHourlySpike(map[int64]int{0: 9, 3600: 1, 7200: 1, 10800: 1}))
	assert.True(t, hasHourlySpike(map[int64]int{0: 10, 3600: 1, 7200: 1, 10800: 1}))
}

func TestIdentifySystemicIssues_DerivesIssuesAndCascade(t *testing.T) {
	store := newFakeStore()
	cascadeFixture(store)
	a := newTestAnalyzer(t, store)

	issues, err := a.IdentifySystemicIssues(context.Background(), "proj-1", models.TimeWindow{Hours: 2}, DefaultIssueOptions())
	require.NoError(t, err)
	require.Len(t, issues, 3)

	byType := map[models.IssueType]models.SystemicIssue{}
	for _, issue := range issues {
		byType[issue.Type] = issue
		assert.NotEmpty(t, issue.ID)
		assert.NotEmpty(t, issue.Title)
		assert.NotEmpty(t, issue.Description)
	}

	tool, ok := byType[models.IssueToolInstability]
	require.True(t, ok)
	assert.Equal(t, "http_fetch", tool.Target)
	assert.Equal(t, 3, tool.AffectedTraces)

	component, ok := byType[models.IssueComponentFailure]
	require.True(t, ok)
	assert.Equal(t, models.CategoryTimeout, component.Category)

	cascade, ok := byType[models.IssueCascadingFailure]
	require.True(t, ok)
	assert.Equal(t, 6, cascade.TotalFailures)
	assert.Len(t, cascade.RelatedPatterns, 2)

	// The cascade spans both patterns, so it carries the highest impact.
	assert.Equal(t, models.IssueCascadingFailure, issues[0].Type)
	for i := 1; i < len(issues); i++ {
		assert.GreaterOrEqual(t, issues[i-1].ImpactScore, issues[i].ImpactScore)
	}
}

func TestIdentifySystemicIssues_ThresholdsExcludeSmallPatterns(t *testing.T) {
	store := newFakeStore()
	// Two occurrences in one trace: below both default thresholds.
	for i := 0; i < 2; i++ {
		store.failures = append(store.failures, models.FailureRecord{
			TraceID:       "trace-1",
			SpanID:        fmt.Sprintf("span-%d", i),
			SpanName:      "call_llm",
			SpanType:      "llm",
			StatusMessage: models.StrPtr("request timed out after 30s"),
			Timestamp:     testBase.Add(time.Duration(i) * time.Minute),
		})
	}
	store.counts = models.TraceCounts{TotalTraces: 5, ErrorTraces: 1}
	a := newTestAnalyzer(t, store)

	issues, err := a.IdentifySystemicIssues(context.Background(), "proj-1", models.TimeWindow{Hours: 2}, DefaultIssueOptions())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestIdentifySystemicIssues_SeverityFilter(t *testing.T) {
	store := newFakeStore()
	cascadeFixture(store)
	a := newTestAnalyzer(t, store)

	opts := DefaultIssueOptions()
	critical := models.SeverityCritical
	opts.SeverityFilter = &critical

	issues, err := a.IdentifySystemicIssues(context.Background(), "proj-1", models.TimeWindow{Hours: 2}, opts)
	require.NoError(t, err)
	for _, issue := range issues {
		assert.Equal(t, models.SeverityCritical, issue.Severity)
	}
}

func TestIssueID_Stable(t *testing.T) {
	a := issueID(models.IssueToolInstability, "http_fetch", models.CategoryConnection)
	b := issueID(models.IssueToolInstability, "http_fetch", models.CategoryConnection)
	c := issueID(models.IssueToolInstability, "http_fetch", models.CategoryTimeout)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "issue_")
}
