package correlation

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agentlens/agentlens-core/internal/models"
	"github.com/agentlens/agentlens-core/internal/monitoring"
	"github.com/agentlens/agentlens-core/internal/patterns"
	"github.com/agentlens/agentlens-core/internal/tracing"
)

// issueCorrelationFloor is the lowered correlation threshold used when
// hunting systemic issues: weak links still matter for cascade detection.
const issueCorrelationFloor = 0.2

// cascadeStrengthThreshold: temporally-correlated pairs at or above this
// strength are reported as cascading failures.
const cascadeStrengthThreshold = 0.7

// hourlyPeakFactor: a pattern is a temporal cluster when its busiest hour
// exceeds this multiple of its mean hourly rate.
const hourlyPeakFactor = 3.0

// Impact score blend weights and the recency half-life.
const (
	impactFrequencyWeight   = 0.4
	impactRecencyWeight     = 0.4
	impactPersistenceWeight = 0.2
	recencyHalfLife         = 24 * time.Hour
)

// securitySensitiveCategories get a severity boost: failures here tend to
// be more serious than their raw counts suggest.
var securitySensitiveCategories = map[models.ErrorCategory]struct{}{
	models.CategoryAuthentication:    {},
	models.CategoryAuthorization:     {},
	models.CategoryServerError:       {},
	models.CategoryResourceExhausted: {},
}

const severityBoostFactor = 1.5

// IssueOptions configures IdentifySystemicIssues.
type IssueOptions struct {
	// MinOccurrences is the minimum pattern frequency to consider.
	// Default 3.
	MinOccurrences int
	// MinAffectedTraces is the minimum distinct traces a pattern must
	// touch. Default 2.
	MinAffectedTraces int
	// SeverityFilter keeps only issues of one severity, applied last.
	SeverityFilter *models.IssueSeverity
	// ComponentFilter restricts the underlying failed-span query.
	ComponentFilter *string
	// SimilarityMethod for the underlying clustering pass.
	SimilarityMethod patterns.SimilarityMethod
}

// DefaultIssueOptions returns the documented defaults.
func DefaultIssueOptions() IssueOptions {
	return IssueOptions{
		MinOccurrences:    3,
		MinAffectedTraces: 2,
	}
}

func (o IssueOptions) withDefaults() IssueOptions {
	if o.MinOccurrences < 1 {
		o.MinOccurrences = 3
	}
	if o.MinAffectedTraces < 1 {
		o.MinAffectedTraces = 2
	}
	return o
}

// IdentifySystemicIssues re-runs correlation discovery with a lowered
// correlation floor and derives a diagnosis for every pattern that clears
// the occurrence and trace thresholds, plus a cascading-failure issue for
// every strong temporally-correlated pattern pair. Results are sorted by
// impact score descending; the severity filter is applied last.
func (a *Analyzer) IdentifySystemicIssues(ctx context.Context, projectID string, window models.TimeWindow, opts IssueOptions) ([]models.SystemicIssue, error) {
	ctx, span := tracing.StartSpan(ctx, "correlation.IdentifySystemicIssues")
	defer span.End()
	start := time.Now()

	var issues []models.SystemicIssue
	tr, err := a.resolveWindow(window)
	if err == nil {
		issues, err = a.identifySystemicIssues(ctx, projectID, tr, opts.withDefaults())
	}
	monitoring.RecordAnalysis("identify_systemic_issues", time.Since(start), err == nil)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return issues, nil
}

func (a *Analyzer) identifySystemicIssues(ctx context.Context, projectID string, tr models.TimeRange, opts IssueOptions) ([]models.SystemicIssue, error) {
	findOpts := a.fillOptions(FindOptions{
		ComponentFilter:  opts.ComponentFilter,
		SimilarityMethod: opts.SimilarityMethod,
	})
	// The lowered floor lets weaker correlations feed cascade detection
	// regardless of the configured reporting threshold.
	findOpts.MinCorrelationStrength = issueCorrelationFloor

	found, err := a.findCorrelatedFailures(ctx, projectID, tr, findOpts)
	if err != nil {
		return nil, err
	}

	var issues []models.SystemicIssue
	for _, cp := range found.Patterns {
		if cp.Frequency < opts.MinOccurrences || len(cp.TraceIDs) < opts.MinAffectedTraces {
			continue
		}
		issues = append(issues, a.buildPatternIssue(cp, tr))
	}

	bySignature := make(map[string]*models.CorrelatedPattern, len(found.Patterns))
	for _, cp := range found.Patterns {
		bySignature[cp.Signature] = cp
	}
	for _, corr := range found.Correlations {
		if corr.Strength < cascadeStrengthThreshold || corr.Type != models.CorrelationTemporal {
			continue
		}
		pa, okA := bySignature[corr.PatternA]
		pb, okB := bySignature[corr.PatternB]
		if !okA || !okB {
			continue
		}
		issues = append(issues, a.buildCascadeIssue(pa, pb, corr, tr))
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].ImpactScore > issues[j].ImpactScore
	})

	if opts.SeverityFilter != nil {
		var filtered []models.SystemicIssue
		for _, issue := range issues {
			if issue.Severity == *opts.SeverityFilter {
				filtered = append(filtered, issue)
			}
		}
		issues = filtered
	}

	a.logger.Debug("Systemic issue identification completed",
		"project_id", projectID,
		"patterns_considered", len(found.Patterns),
		"issues", len(issues))

	return issues, nil
}

// buildPatternIssue derives an issue from one qualifying pattern. The issue
// type is decided by priority: tool instability, then single-model
// degradation, then single-component failure, then temporal clustering,
// then a generic component failure.
func (a *Analyzer) buildPatternIssue(cp *models.CorrelatedPattern, window models.TimeRange) models.SystemicIssue {
	issueType, target := classifyPattern(cp)

	severity, _ := computeSeverity(cp.Frequency, len(cp.TraceIDs), cp.Category)

	issue := models.SystemicIssue{
		ID:               issueID(issueType, target, cp.Category),
		Title:            issueTitle(issueType, target),
		Severity:         severity,
		Type:             issueType,
		Target:           target,
		Category:         cp.Category,
		ErrorPattern:     cp.NormalizedMessage,
		AffectedTraceIDs: cp.TraceIDs,
		AffectedTraces:   len(cp.TraceIDs),
		TotalFailures:    cp.Frequency,
		FirstSeen:        cp.FirstSeen,
		LastSeen:         cp.LastSeen,
		Confidence:       cp.Confidence,
		ImpactScore:      computeImpactScore(cp.Frequency, cp.FirstSeen, cp.LastSeen, window, a.now()),
		RelatedPatterns:  relatedSignatures(cp),
	}
	issue.Description = fmt.Sprintf(
		"%d %s failures across %d traces, most recently %s. Representative error: %s",
		cp.Frequency, cp.Category, len(cp.TraceIDs),
		cp.LastSeen.Format(time.RFC3339), cp.NormalizedMessage)
	return issue
}

func (a *Analyzer) buildCascadeIssue(pa, pb *models.CorrelatedPattern, corr models.PatternCorrelation, window models.TimeRange) models.SystemicIssue {
	target := cascadeTarget(pa, pb)
	firstSeen := pa.FirstSeen
	if pb.FirstSeen.Before(firstSeen) {
		firstSeen = pb.FirstSeen
	}
	lastSeen := pa.LastSeen
	if pb.LastSeen.After(lastSeen) {
		lastSeen = pb.LastSeen
	}

	traceSet := make(map[string]struct{})
	var traceIDs []string
	for _, cp := range []*models.CorrelatedPattern{pa, pb} {
		for _, id := range cp.TraceIDs {
			if _, ok := traceSet[id]; !ok {
				traceSet[id] = struct{}{}
				traceIDs = append(traceIDs, id)
			}
		}
	}

	totalFailures := pa.Frequency + pb.Frequency
	severity, _ := computeSeverity(totalFailures, len(traceIDs), pa.Category)

	issue := models.SystemicIssue{
		ID:               issueID(models.IssueCascadingFailure, target, pa.Category),
		Title:            issueTitle(models.IssueCascadingFailure, target),
		Severity:         severity,
		Type:             models.IssueCascadingFailure,
		Target:           target,
		Category:         pa.Category,
		ErrorPattern:     pa.NormalizedMessage,
		AffectedTraceIDs: traceIDs,
		AffectedTraces:   len(traceIDs),
		TotalFailures:    totalFailures,
		FirstSeen:        firstSeen,
		LastSeen:         lastSeen,
		Confidence:       corr.Strength,
		ImpactScore:      computeImpactScore(totalFailures, firstSeen, lastSeen, window, a.now()),
		RelatedPatterns:  []string{pa.Signature, pb.Signature},
	}
	issue.Description = fmt.Sprintf(
		"Patterns %q and %q fail together in %d traces (correlation %.2f); one likely triggers the other.",
		pa.Name, pb.Name, corr.CoOccurrenceCount, corr.Strength)
	return issue
}

func classifyPattern(cp *models.CorrelatedPattern) (models.IssueType, string) {
	switch {
	case len(cp.ToolNames) > 0:
		return models.IssueToolInstability, cp.ToolNames[0]
	case len(cp.AffectedModels) == 1:
		return models.IssueModelDegradation, cp.AffectedModels[0]
	case len(cp.AffectedComponents) == 1:
		return models.IssueComponentFailure, cp.AffectedComponents[0]
	case hasHourlySpike(cp.HourlyDistribution):
		return models.IssueTemporalCluster, temporalTarget(cp)
	default:
		return models.IssueComponentFailure, temporalTarget(cp)
	}
}

func temporalTarget(cp *models.CorrelatedPattern) string {
	if len(cp.AffectedComponents) > 0 {
		return strings.Join(cp.AffectedComponents, ",")
	}
	return "system"
}

func cascadeTarget(pa, pb *models.CorrelatedPattern) string {
	return temporalTarget(pa) + " -> " + temporalTarget(pb)
}

// hasHourlySpike reports whether the busiest hour exceeds hourlyPeakFactor
// times the mean hourly occurrence count.
func hasHourlySpike(hist map[int64]int) bool {
	if len(hist) == 0 {
		return false
	}
	peak, sum := 0, 0
	for _, n := range hist {
		sum += n
		if n > peak {
			peak = n
		}
	}
	mean := float64(sum) / float64(len(hist))
	return float64(peak) > hourlyPeakFactor*mean
}

// computeSeverity blends frequency and affected-trace count into a severity
// bucket. Security-sensitive categories are boosted before bucketing.
func computeSeverity(frequency, affectedTraces int, category models.ErrorCategory) (models.IssueSeverity, float64) {
	score := 0.5*math.Min(1, float64(frequency)/10) + 0.5*math.Min(1, float64(affectedTraces)/5)
	if _, sensitive := securitySensitiveCategories[category]; sensitive {
		score *= severityBoostFactor
		if score > 1 {
			score = 1
		}
	}
	switch {
	case score >= 0.75:
		return models.SeverityCritical, score
	case score >= 0.5:
		return models.SeverityHigh, score
	case score >= 0.25:
		return models.SeverityMedium, score
	default:
		return models.SeverityLow, score
	}
}

// computeImpactScore blends log-scaled frequency, exponential recency decay
// with a 24h half-life, and window-relative persistence. When the analysis
// window has zero width, persistence contributes its full weight if the
// pattern spans any duration and nothing otherwise; this guards the
// division by zero and is deliberate behavior, not an approximation to fix.
func computeImpactScore(frequency int, firstSeen, lastSeen time.Time, window models.TimeRange, now time.Time) float64 {
	freqScore := math.Log1p(float64(frequency)) / math.Log1p(100)
	if freqScore > 1 {
		freqScore = 1
	}

	age := now.Sub(lastSeen)
	if age < 0 {
		age = 0
	}
	recency := math.Exp2(-float64(age) / float64(recencyHalfLife))

	patternSpan := lastSeen.Sub(firstSeen)
	windowSpan := window.Duration()
	var persistence float64
	if windowSpan <= 0 {
		if patternSpan > 0 {
			persistence = 1
		}
	} else {
		persistence = float64(patternSpan) / float64(windowSpan)
		if persistence > 1 {
			persistence = 1
		}
	}

	return impactFrequencyWeight*freqScore +
		impactRecencyWeight*recency +
		impactPersistenceWeight*persistence
}

func relatedSignatures(cp *models.CorrelatedPattern) []string {
	related := []string{cp.Signature}
	// Deterministic order for the correlated signatures.
	var others []string
	for sig := range cp.Correlations {
		others = append(others, sig)
	}
	sort.Strings(others)
	return append(related, others...)
}

func issueID(issueType models.IssueType, target string, category models.ErrorCategory) string {
	h := fnv.New64a()
	h.Write([]byte(issueType))
	h.Write([]byte{0})
	h.Write([]byte(target))
	h.Write([]byte{0})
	h.Write([]byte(category))
	return fmt.Sprintf("issue_%016x", h.Sum64())
}

func issueTitle(issueType models.IssueType, target string) string {
	switch issueType {
	case models.IssueToolInstability:
		return fmt.Sprintf("Tool instability: %s", target)
	case models.IssueModelDegradation:
		return fmt.Sprintf("Model degradation: %s", target)
	case models.IssueCascadingFailure:
		return fmt.Sprintf("Cascading failure: %s", target)
	case models.IssueTemporalCluster:
		return fmt.Sprintf("Temporal failure cluster: %s", target)
	default:
		return fmt.Sprintf("Component failure: %s", target)
	}
}
