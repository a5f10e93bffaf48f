package models

// TraceCounts is the total/error trace tally for one window.
type TraceCounts struct {
	TotalTraces int `json:"totalTraces"`
	ErrorTraces int `json:"errorTraces"`
}

// ComponentStats is the per-component aggregate returned by the store.
type ComponentStats struct {
	ComponentType      string  `json:"componentType"`
	TotalSpans         int     `json:"totalSpans"`
	ErrorCount         int     `json:"errorCount"`
	AvgDurationMs      float64 `json:"avgDurationMs"`
	AvgErrorDurationMs float64 `json:"avgErrorDurationMs"`
}

// HalfWindowStats is one half of a split-window component aggregate.
type HalfWindowStats struct {
	TotalSpans int `json:"totalSpans"`
	ErrorCount int `json:"errorCount"`
}

// ComponentStatsSplit carries the same per-component aggregate computed
// separately over the two halves of the window, used for trend detection.
type ComponentStatsSplit struct {
	ComponentType string          `json:"componentType"`
	FirstHalf     HalfWindowStats `json:"firstHalf"`
	SecondHalf    HalfWindowStats `json:"secondHalf"`
}

// ComponentErrorCount is one (component, status message) occurrence count.
type ComponentErrorCount struct {
	ComponentType string `json:"componentType"`
	StatusMessage string `json:"statusMessage"`
	Count         int    `json:"count"`
}
