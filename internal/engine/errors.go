package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error that ended a query execution.
//
// Runtime errors include:
//   - Timeout: the deadline passed before a fallback could run
//   - Execution failed: a strategy or the direct query failed permanently
//
// RuntimeError includes structured fields for diagnostics. Err holds the
// cause, so errors.As still finds reader.EngineError and friends.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// QueryID identifies the execution.
	QueryID string

	// Strategy names the strategy that was running, or "direct".
	Strategy string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTimeout indicates the context deadline passed during execution.
	ErrCodeTimeout RuntimeErrorCode = "TIMEOUT"

	// ErrCodeExecutionFailed indicates a non-retryable failure.
	ErrCodeExecutionFailed RuntimeErrorCode = "EXECUTION_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.QueryID != "" && e.Strategy != "" {
		msg = fmt.Sprintf("%s (query=%s, strategy=%s)", msg, e.QueryID, e.Strategy)
	} else if e.QueryID != "" {
		msg = fmt.Sprintf("%s (query=%s)", msg, e.QueryID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsTimeout returns true if the error is a timeout error.
// Uses errors.As to handle wrapped errors.
func IsTimeout(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeTimeout
	}
	return false
}

// IsExecutionFailed returns true if the error is a permanent execution
// failure.
func IsExecutionFailed(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeExecutionFailed
	}
	return false
}
