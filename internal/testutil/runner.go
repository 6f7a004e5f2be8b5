package testutil

import (
	"context"
	"sync"

	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/reader"
)

// Response is one programmed answer of a RecordingRunner.
type Response struct {
	Rows []ir.IRObject
	Err  error
}

// Call is one query a RecordingRunner received.
type Call struct {
	Query    *query.Query
	Settings reader.Settings
}

// RecordingRunner is a reader.Runner that records every query it receives.
//
// Answers come from the programmed responses in order; once they are
// exhausted, or when none were given, the runner answers with no rows.
// With NewRecordingRunnerFunc the answer is computed per call instead.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingRunner struct {
	mu        sync.Mutex
	calls     []Call
	responses []Response
	fn        func(n int, q *query.Query) (*reader.Result, error)
}

// NewRecordingRunner creates a runner that answers with responses in order.
func NewRecordingRunner(responses ...Response) *RecordingRunner {
	return &RecordingRunner{responses: responses}
}

// NewRecordingRunnerFunc creates a runner that answers call n (0-based)
// with fn.
func NewRecordingRunnerFunc(fn func(n int, q *query.Query) (*reader.Result, error)) *RecordingRunner {
	return &RecordingRunner{fn: fn}
}

// Run implements reader.Runner. The recorded query is a clone.
func (r *RecordingRunner) Run(ctx context.Context, q *query.Query, s reader.Settings) (*reader.Result, error) {
	r.mu.Lock()
	n := len(r.calls)
	r.calls = append(r.calls, Call{Query: q.Clone(), Settings: s})
	fn := r.fn
	var resp *Response
	if n < len(r.responses) {
		resp = &r.responses[n]
	}
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(n, q)
	}
	if resp == nil {
		return reader.NewResult([]ir.IRObject{}), nil
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return reader.NewResult(resp.Rows), nil
}

// Calls returns the recorded calls in order.
func (r *RecordingRunner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns the number of queries received.
func (r *RecordingRunner) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Reset forgets recorded calls and restarts the programmed responses.
func (r *RecordingRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
