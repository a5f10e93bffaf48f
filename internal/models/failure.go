package models

import "time"

// ErrorCategory is the closed set of failure categories the engine assigns.
type ErrorCategory string

const (
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryConnection        ErrorCategory = "connection"
	CategoryAuthentication    ErrorCategory = "authentication"
	CategoryAuthorization     ErrorCategory = "authorization"
	CategoryValidation        ErrorCategory = "validation"
	CategoryRateLimit         ErrorCategory = "rate_limit"
	CategoryNotFound          ErrorCategory = "not_found"
	CategoryServerError       ErrorCategory = "server_error"
	CategoryParseError        ErrorCategory = "parse_error"
	CategoryResourceExhausted ErrorCategory = "resource_exhausted"
	CategoryUnknown           ErrorCategory = "unknown"
)

// FailureRecord is one failed span observation as read from the analytical
// store. Optional columns are pointers so that an absent value is
// distinguishable from an empty string. Records are never mutated after
// construction.
type FailureRecord struct {
	TraceID       string            `json:"traceId"`
	SpanID        string            `json:"spanId"`
	SpanName      string            `json:"spanName"`
	SpanType      string            `json:"spanType"`
	ComponentType *string           `json:"componentType,omitempty"`
	ToolName      *string           `json:"toolName,omitempty"`
	StatusMessage *string           `json:"statusMessage,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Duration      time.Duration     `json:"duration"`
	Model         *string           `json:"model,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// FailureFeatures is the derived, immutable view of a FailureRecord used for
// grouping and similarity scoring. Computed on demand, never persisted.
type FailureFeatures struct {
	ErrorMessage      *string       `json:"errorMessage,omitempty"`
	NormalizedMessage *string       `json:"normalizedMessage,omitempty"`
	Category          ErrorCategory `json:"category"`
	ComponentType     *string       `json:"componentType,omitempty"`
	SpanType          string        `json:"spanType"`
	ToolName          *string       `json:"toolName,omitempty"`
	SpanName          string        `json:"spanName"`
	Model             *string       `json:"model,omitempty"`
	StackSignature    *string       `json:"stackSignature,omitempty"`
}

// StrPtr returns a pointer to s. Convenience for building records with
// optional fields.
func StrPtr(s string) *string { return &s }

// StrVal dereferences p, returning "" when absent.
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
