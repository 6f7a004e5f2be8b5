package optimize

import (
	"errors"
	"fmt"
	"time"
)

// ErrJobTimeout is matched by every JobTimeoutError.
var ErrJobTimeout = errors.New("optimize job timed out")

// JobTimeoutError reports that a cutoff was reached with partitions left.
type JobTimeoutError struct {
	Table  string
	Cutoff time.Time

	// Pending is the number of partitions not yet optimized, when known.
	Pending int
}

// Error implements the error interface.
func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("optimize %s: cutoff %s reached with %d partitions pending",
		e.Table, e.Cutoff.Format(time.RFC3339), e.Pending)
}

// Unwrap returns ErrJobTimeout.
func (e *JobTimeoutError) Unwrap() error { return ErrJobTimeout }

// IsJobTimeout returns true if err is a JobTimeoutError.
func IsJobTimeout(err error) bool {
	return errors.Is(err, ErrJobTimeout)
}
