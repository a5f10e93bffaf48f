package models

import "time"

// IssueSeverity orders systemic issues for triage.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityHigh     IssueSeverity = "high"
	SeverityMedium   IssueSeverity = "medium"
	SeverityLow      IssueSeverity = "low"
)

// IssueType classifies what kind of systemic problem an issue describes.
type IssueType string

const (
	IssueComponentFailure IssueType = "component_failure"
	IssueCascadingFailure IssueType = "cascading_failure"
	IssueTemporalCluster  IssueType = "temporal_cluster"
	IssueModelDegradation IssueType = "model_degradation"
	IssueToolInstability  IssueType = "tool_instability"
)

// SystemicIssue is a derived diagnosis for one time window. It is computed
// from patterns and correlations and never persisted.
type SystemicIssue struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Severity         IssueSeverity `json:"severity"`
	Type             IssueType     `json:"type"`
	Target           string        `json:"target"`
	Category         ErrorCategory `json:"category"`
	ErrorPattern     string        `json:"errorPattern"`
	AffectedTraceIDs []string      `json:"affectedTraceIds"`
	AffectedTraces   int           `json:"affectedTraces"`
	TotalFailures    int           `json:"totalFailures"`
	FirstSeen        time.Time     `json:"firstSeen"`
	LastSeen         time.Time     `json:"lastSeen"`
	Confidence       float64       `json:"confidence"`
	ImpactScore      float64       `json:"impactScore"`
	RelatedPatterns  []string      `json:"relatedPatterns"`
}

// HealthTrend compares the two halves of an analysis window.
type HealthTrend string

const (
	TrendImproving HealthTrend = "improving"
	TrendStable    HealthTrend = "stable"
	TrendDegrading HealthTrend = "degrading"
)

// CategoryCount pairs an error category with its occurrence count.
type CategoryCount struct {
	Category ErrorCategory `json:"category"`
	Count    int           `json:"count"`
}

// ComponentHealth is the per-component aggregate for one window.
type ComponentHealth struct {
	ComponentType      string          `json:"componentType"`
	TotalSpans         int             `json:"totalSpans"`
	ErrorCount         int             `json:"errorCount"`
	ErrorRate          float64         `json:"errorRate"`
	AvgDurationMs      float64         `json:"avgDurationMs"`
	AvgErrorDurationMs float64         `json:"avgErrorDurationMs"`
	TopErrorCategories []CategoryCount `json:"topErrorCategories"`
	Trend              HealthTrend     `json:"trend,omitempty"`
	HealthScore        float64         `json:"healthScore"`
}

// CorrelatedFailuresResult is the return shape of FindCorrelatedFailures.
type CorrelatedFailuresResult struct {
	Patterns         []*CorrelatedPattern `json:"patterns"`
	Correlations     []PatternCorrelation `json:"correlations"`
	TotalFailures    int                  `json:"totalFailures"`
	UnclusteredCount int                  `json:"unclusteredCount"`
	Summary          string               `json:"summary"`
}

// TimeWindowAnalysis bundles every analysis for one resolved window.
type TimeWindowAnalysis struct {
	StartTime       time.Time            `json:"startTime"`
	EndTime         time.Time            `json:"endTime"`
	TotalTraces     int                  `json:"totalTraces"`
	ErrorTraces     int                  `json:"errorTraces"`
	ErrorRate       float64              `json:"errorRate"`
	TotalFailures   int                  `json:"totalFailures"`
	Patterns        []*CorrelatedPattern `json:"patterns"`
	Issues          []SystemicIssue      `json:"issues"`
	ComponentHealth []ComponentHealth    `json:"componentHealth"`
	Correlations    []PatternCorrelation `json:"correlations"`
	Summary         string               `json:"summary"`
}
