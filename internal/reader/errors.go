package reader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// TransportError is a transient failure reaching or waiting on the engine.
type TransportError struct {
	// Op names the operation that failed (e.g., "query", "connect").
	Op string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// EngineError is a failure of the query itself, reported by the engine.
type EngineError struct {
	// Code is the engine's error code, when it reports one.
	Code int

	// Message is the engine's description.
	Message string

	// SQL is the statement that failed, when known.
	SQL string

	// Err is the underlying driver error, if any.
	Err error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("engine error: %s", e.Message)
}

// Unwrap returns the underlying driver error.
func (e *EngineError) Unwrap() error { return e.Err }

// Category is the retry class of an error.
type Category int

const (
	Permanent Category = iota // Failures of the query itself - no fallback
	Transient                 // Temporary failures - fallback allowed
)

// String returns the category name used in logs and metrics.
func (c Category) String() string {
	if c == Transient {
		return "transient"
	}
	return "permanent"
}

// Classify determines the retry class of err. An EngineError is always
// permanent, even when it wraps a transient cause.
func Classify(err error) Category {
	if err == nil {
		return Permanent
	}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return Permanent
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return Transient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT, syscall.EPIPE, syscall.EAGAIN:
			return Transient
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}

	return Permanent
}

// IsRetryable returns true if err may be resolved by executing the query
// with a different shape.
func IsRetryable(err error) bool {
	return Classify(err) == Transient
}
