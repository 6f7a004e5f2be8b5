package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/engine"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/querydoc"
	"github.com/roach88/splitq/internal/split"
	"github.com/roach88/splitq/internal/store"
)

// Harness is the scenario execution engine.
type Harness struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithCatalog sets the storage catalog. Default: catalog.Default().
func WithCatalog(c *catalog.Catalog) Option {
	return func(h *Harness) {
		if c != nil {
			h.catalog = c
		}
	}
}

// WithLogger sets the logger handed to the engine and the strategies.
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory database and load the fixtures
// 2. Build the query and run it directly for reference
// 3. Run it through the split engine with a clean query log
// 4. Collect the trace and evaluate expectations
//
// An error is returned only when the scenario cannot be set up. Failures of
// the split run itself are reported through Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cat := h.catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(); err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	storage, err := cat.Get(scenario.Storage)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	rows, err := FixtureRows(storage, scenario.Fixtures)
	if err != nil {
		return nil, err
	}
	if err := st.CreateTable(ctx, storage); err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	if err := st.Insert(ctx, storage, rows); err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	q, err := querydoc.Build(&scenario.Query, storage)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	settings := scenario.Query.Settings(scenario.useSplit())
	run := st.Runner()

	result := NewResult()
	if scenario.Expect.MatchesDirect {
		direct, err := run(ctx, q.Clone(), settings)
		if err != nil {
			return nil, fmt.Errorf("failed to run reference query: %w", err)
		}
		result.Direct = direct.Data
	}

	if err := st.ResetQueryLog(ctx); err != nil {
		return nil, err
	}

	eng := engine.New(h.strategies(storage, scenario.Split),
		engine.WithLogger(h.logger),
		engine.WithIDGenerator(engine.NewFixedGenerator(scenario.Name)),
	)
	res, err := eng.Execute(ctx, q, settings, run)
	if err != nil {
		result.Err = err
	} else {
		result.Data = res.Data
		if name, ok := res.Extra[engine.ExtraStrategy].(ir.IRString); ok {
			result.Strategy = string(name)
		}
	}

	log, err := st.QueryLog(ctx)
	if err != nil {
		return nil, err
	}
	for i, entry := range log {
		result.Trace = append(result.Trace, TraceEntry{
			Seq:    i + 1,
			SQL:    entry.SQL,
			Params: entry.Params,
			Rows:   entry.Rows,
			Error:  entry.Error,
		})
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// strategies builds the storage chain with the scenario overrides, keeping
// the order the scenario names them in.
func (h *Harness) strategies(storage *catalog.Storage, s SplitSettings) []split.Strategy {
	column := split.ColumnConfig{
		MinCols:    s.Column.MinCols,
		MaxResults: s.Column.MaxResults,
	}
	timeCfg := split.TimeConfig{
		InitialStep: s.Time.InitialStep,
		Growth:      s.Time.Growth,
		MaxStep:     s.Time.MaxStep,
		MaxOffset:   s.Time.MaxOffset,
	}
	all := storage.SplitStrategies(column, timeCfg, split.WithLogger(h.logger))
	if len(s.Strategies) == 0 {
		return all
	}

	var out []split.Strategy
	for _, name := range s.Strategies {
		for _, strategy := range all {
			if strategy.Name() == name {
				out = append(out, strategy)
			}
		}
	}
	return out
}
