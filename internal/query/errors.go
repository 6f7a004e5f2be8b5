package query

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes query model errors.
type ErrorCode string

const (
	// ErrCodeUnboundDataSource indicates the data source was read before it
	// was assigned.
	ErrCodeUnboundDataSource ErrorCode = "UNBOUND_DATA_SOURCE"

	// ErrCodeInvariantViolation indicates a single-assignment field was
	// assigned twice, read before assignment, or given an invalid value.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeAliasResolution indicates a column or alias reference that
	// resolves to nothing declared by the query or its data source.
	ErrCodeAliasResolution ErrorCode = "ALIAS_RESOLUTION_FAILURE"
)

// Error is returned by Query operations that detect a misuse of the model
// or an invalid query.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Unresolved lists the symbols that failed alias resolution.
	Unresolved []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Unresolved) > 0 {
		return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Unresolved)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsUnboundDataSource returns true if err is an UNBOUND_DATA_SOURCE error.
// Uses errors.As to handle wrapped errors.
func IsUnboundDataSource(err error) bool {
	return hasCode(err, ErrCodeUnboundDataSource)
}

// IsInvariantViolation returns true if err is an INVARIANT_VIOLATION error.
func IsInvariantViolation(err error) bool {
	return hasCode(err, ErrCodeInvariantViolation)
}

// IsAliasResolution returns true if err is an ALIAS_RESOLUTION_FAILURE error.
func IsAliasResolution(err error) bool {
	return hasCode(err, ErrCodeAliasResolution)
}

func hasCode(err error, code ErrorCode) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}
