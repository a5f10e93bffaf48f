package models

import "time"

// FailurePattern is a cluster of similar failures within one analysis scope.
// Patterns are immutable once an analysis call returns them.
type FailurePattern struct {
	Signature         string        `json:"signature"`
	Name              string        `json:"name"`
	NormalizedMessage string        `json:"normalizedMessage"`
	Category          ErrorCategory `json:"category"`
	ComponentTypes    []string      `json:"componentTypes"`
	ToolNames         []string      `json:"toolNames"`
	SpanTypes         []string      `json:"spanTypes"`
	Frequency         int           `json:"frequency"`
	FirstSeen         time.Time     `json:"firstSeen"`
	LastSeen          time.Time     `json:"lastSeen"`
	ExampleSpanIDs    []string      `json:"exampleSpanIds"`
	Confidence        float64       `json:"confidence"`
}

// CorrelatedPattern is a FailurePattern enriched with cross-trace metadata.
// Built only by the correlation analyzer.
type CorrelatedPattern struct {
	FailurePattern

	TraceIDs []string `json:"traceIds"`
	// HourlyDistribution maps hour-bucket start (unix seconds, floored to
	// the hour) to the number of occurrences in that hour.
	HourlyDistribution map[int64]int `json:"hourlyDistribution"`
	AffectedComponents []string      `json:"affectedComponents"`
	AffectedModels     []string      `json:"affectedModels"`
	// Correlations maps other pattern signatures to correlation strength.
	Correlations map[string]float64 `json:"correlations"`
}

// CorrelationType tags how two patterns relate in time. "causal" is declared
// for forward compatibility; no current code path assigns it.
type CorrelationType string

const (
	CorrelationTemporal     CorrelationType = "temporal"
	CorrelationCausal       CorrelationType = "causal"
	CorrelationCoincidental CorrelationType = "coincidental"
)

// PatternCorrelation is an undirected edge between two pattern signatures.
// Strength is the absolute Phi coefficient, always in [0,1].
type PatternCorrelation struct {
	PatternA          string          `json:"patternA"`
	PatternB          string          `json:"patternB"`
	Strength          float64         `json:"strength"`
	CoOccurrenceCount int             `json:"coOccurrenceCount"`
	PatternACount     int             `json:"patternACount"`
	PatternBCount     int             `json:"patternBCount"`
	Type              CorrelationType `json:"type"`
	AvgTimeDelta      *time.Duration  `json:"avgTimeDelta,omitempty"`
}
