package reader

import (
	"context"
	"maps"

	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
)

// Result is the outcome of executing one physical query.
type Result struct {
	// Data holds the rows, keyed by output column name.
	Data []ir.IRObject

	// Extra carries annotations such as the rendered SQL, timing and the
	// strategy that produced the result.
	Extra ir.IRObject
}

// NewResult builds a result with an empty Extra map.
func NewResult(rows []ir.IRObject) *Result {
	return &Result{Data: rows, Extra: ir.IRObject{}}
}

// WithExtra returns a copy of r with key set in Extra. Rows are shared.
func (r *Result) WithExtra(key string, value ir.IRValue) *Result {
	extra := maps.Clone(r.Extra)
	if extra == nil {
		extra = ir.IRObject{}
	}
	extra[key] = value
	return &Result{Data: r.Data, Extra: extra}
}

// Settings are the caller-supplied execution settings passed through to
// every sub-query.
type Settings struct {
	// UseSplit enables the split strategies.
	UseSplit bool

	// Turbo trades accuracy for speed, e.g. by sampling.
	Turbo bool

	// Consistent requests reads from a single replica.
	Consistent bool

	// Debug asks the engine to annotate results.
	Debug bool

	// Engine holds raw engine settings, forwarded verbatim.
	Engine map[string]string
}

// Runner executes a physical query.
//
// Implementations return a TransportError for failures worth retrying
// with a different shape and an EngineError for failures of the query
// itself.
type Runner func(ctx context.Context, q *query.Query, s Settings) (*Result, error)
