package harness

import (
	"github.com/roach88/splitq/internal/ir"
)

// TraceEntry is one statement the engine issued while answering the
// scenario query.
type TraceEntry struct {
	Seq    int    `json:"seq"`
	SQL    string `json:"sql"`
	Params string `json:"params"`
	Rows   int    `json:"rows"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if all expectations match.
	Pass bool `json:"pass"`

	// Strategy is the strategy that answered, or "" if execution failed.
	Strategy string `json:"strategy,omitempty"`

	// Trace holds the statements of the split execution in issue order.
	// The direct reference execution is not part of it.
	Trace []TraceEntry `json:"trace"`

	// Data is the split execution result.
	Data []ir.IRObject `json:"-"`

	// Direct is the reference result of running the query without split.
	Direct []ir.IRObject `json:"-"`

	// Err is the split execution error, if any.
	Err error `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// SubQueries returns the number of statements in the trace.
func (r *Result) SubQueries() int {
	return len(r.Trace)
}
