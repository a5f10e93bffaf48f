package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures for callers. Every store-facing call
// wraps its underlying failure into exactly one of these.
type ErrorCode string

const (
	ErrCodeQueryFailed     ErrorCode = "QUERY_FAILED"
	ErrCodeQueryTimeout    ErrorCode = "QUERY_TIMEOUT"
	ErrCodeConnectionError ErrorCode = "CONNECTION_ERROR"
	ErrCodeParseError      ErrorCode = "PARSE_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
)

// EngineError is the typed error carried across the engine's public surface.
// It wraps the original cause so callers can still unwrap it.
type EngineError struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// NewEngineError builds a typed error for operation op with the given cause.
func NewEngineError(code ErrorCode, op string, err error) *EngineError {
	return &EngineError{Code: code, Op: op, Err: err}
}

// InvalidInput builds an INVALID_INPUT error with a formatted message and no
// underlying cause.
func InvalidInput(format string, args ...interface{}) *EngineError {
	return &EngineError{Code: ErrCodeInvalidInput, Op: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed. Returns
// ErrCodeQueryFailed for non-engine errors and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ErrCodeQueryFailed
}
