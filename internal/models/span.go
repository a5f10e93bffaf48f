package models

import "time"

// SpanStatus is the recorded outcome of a span.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
	SpanStatusUnset SpanStatus = "unset"
)

// Span is one recorded unit of work within a trace: an LLM call, a tool
// call, or an agent step. Spans form a tree through Children.
type Span struct {
	SpanID        string            `json:"spanId"`
	TraceID       string            `json:"traceId"`
	Name          string            `json:"name"`
	Type          string            `json:"type"`
	ComponentType *string           `json:"componentType,omitempty"`
	ToolName      *string           `json:"toolName,omitempty"`
	Model         *string           `json:"model,omitempty"`
	Status        SpanStatus        `json:"status"`
	StatusMessage *string           `json:"statusMessage,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Duration      time.Duration     `json:"duration"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Children      []*Span           `json:"children,omitempty"`
}

// Trace is the set of spans produced by one end-to-end agent execution.
type Trace struct {
	TraceID string  `json:"traceId"`
	Spans   []*Span `json:"spans"`
}

// FailureRecordFromSpan converts an error-status span into a FailureRecord.
func FailureRecordFromSpan(s *Span) FailureRecord {
	return FailureRecord{
		TraceID:       s.TraceID,
		SpanID:        s.SpanID,
		SpanName:      s.Name,
		SpanType:      s.Type,
		ComponentType: s.ComponentType,
		ToolName:      s.ToolName,
		StatusMessage: s.StatusMessage,
		Timestamp:     s.Timestamp,
		Duration:      s.Duration,
		Model:         s.Model,
		Attributes:    s.Attributes,
	}
}
