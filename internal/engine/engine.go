package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/querysql"
	"github.com/roach88/splitq/internal/reader"
	"github.com/roach88/splitq/internal/split"
)

// StrategyDirect labels results of running the query without a strategy.
const StrategyDirect = "direct"

// Strategy outcomes reported to Metrics.
const (
	OutcomeDeclined        = "declined"
	OutcomeSucceeded       = "succeeded"
	OutcomeFailedRetryable = "failed_retryable"
)

// Result annotations added to every successful execution.
const (
	ExtraQueryID  = "query_id"
	ExtraStrategy = "strategy"
)

// Metrics receives execution events. internal/metrics provides the
// Prometheus implementation.
type Metrics interface {
	StrategyOutcome(strategy, outcome string)
	DirectExecution()
}

type nopMetrics struct{}

func (nopMetrics) StrategyOutcome(string, string) {}
func (nopMetrics) DirectExecution()               {}

// Step is one physical query issued during an execution.
type Step struct {
	Seq      int64
	QueryID  string
	Strategy string
	Query    *query.Query
}

// Tracer observes every physical query before it runs. Tracers must not
// mutate the query.
type Tracer func(Step)

// Engine runs logical queries through an ordered chain of split strategies.
//
// INVARIANTS:
//   - strategies slice order NEVER changes after construction
//   - the caller's query is never mutated
//   - a strategy that failed is never retried within one execution
type Engine struct {
	strategies []split.Strategy
	logger     *slog.Logger
	metrics    Metrics
	ids        QueryIDGenerator
	clock      *Clock
	tracer     Tracer
	translate  query.Translator
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithIDGenerator sets the query id generator. Default: UUIDv7Generator.
func WithIDGenerator(g QueryIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithClock sets the clock used to stamp sub-queries.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTracer registers a tracer for every physical query.
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithTranslator sets the logical to physical translation applied to every
// query before it reaches the runner. Default: query.IdentityTranslate.
func WithTranslator(t query.Translator) Option {
	return func(e *Engine) {
		if t != nil {
			e.translate = t
		}
	}
}

// New creates an Engine that tries strategies in the given order.
//
// The strategies slice is copied to prevent external mutation from breaking
// the evaluation order.
func New(strategies []split.Strategy, opts ...Option) *Engine {
	e := &Engine{
		strategies: append([]split.Strategy(nil), strategies...),
		logger:     slog.Default(),
		metrics:    nopMetrics{},
		ids:        UUIDv7Generator{},
		clock:      NewClock(),
		translate:  query.IdentityTranslate,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategies returns the strategy names in evaluation order.
func (e *Engine) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// Execute runs q through the strategy chain, falling back to direct
// execution when every strategy declines or fails with a retryable error.
//
// The returned result carries the query id and the name of the strategy
// that produced it in Extra.
func (e *Engine) Execute(ctx context.Context, q *query.Query, s reader.Settings, run reader.Runner) (*reader.Result, error) {
	if q == nil {
		return nil, errors.New("cannot execute nil query")
	}
	if _, err := q.DataSource(); err != nil {
		return nil, err
	}

	queryID := e.ids.Generate()
	logger := e.logger.With("query_id", queryID)

	for _, strategy := range e.strategies {
		name := strategy.Name()
		res, ok, err := strategy.TryExecute(ctx, q, s, e.traced(logger, queryID, name, run))
		switch {
		case err != nil:
			if !reader.IsRetryable(err) {
				return nil, &RuntimeError{
					Code:     ErrCodeExecutionFailed,
					Message:  "split strategy failed",
					QueryID:  queryID,
					Strategy: name,
					Err:      err,
				}
			}
			logger.WarnContext(ctx, "split strategy failed, falling back",
				"strategy", name,
				"error", err)
			e.metrics.StrategyOutcome(name, OutcomeFailedRetryable)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, e.contextError(queryID, name, ctxErr)
			}
		case ok:
			e.metrics.StrategyOutcome(name, OutcomeSucceeded)
			return e.finish(ctx, logger, queryID, name, res), nil
		default:
			e.metrics.StrategyOutcome(name, OutcomeDeclined)
		}
	}

	e.metrics.DirectExecution()
	res, err := e.traced(logger, queryID, StrategyDirect, run)(ctx, q, s)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, e.contextError(queryID, StrategyDirect, ctxErr)
		}
		return nil, &RuntimeError{
			Code:     ErrCodeExecutionFailed,
			Message:  "direct execution failed",
			QueryID:  queryID,
			Strategy: StrategyDirect,
			Err:      err,
		}
	}
	return e.finish(ctx, logger, queryID, StrategyDirect, res), nil
}

// traced wraps run so every physical query is translated, stamped with a
// seq and reported to the tracer.
func (e *Engine) traced(logger *slog.Logger, queryID, strategy string, run reader.Runner) reader.Runner {
	return func(ctx context.Context, q *query.Query, s reader.Settings) (*reader.Result, error) {
		physical := e.translate(q)
		seq := e.clock.Next()
		if e.tracer != nil {
			e.tracer(Step{Seq: seq, QueryID: queryID, Strategy: strategy, Query: physical})
		}
		if logger.Enabled(ctx, slog.LevelDebug) {
			sql, err := querysql.FormatQueryAnonymized(physical)
			if err != nil {
				sql = "<unformattable: " + err.Error() + ">"
			}
			logger.DebugContext(ctx, "issuing query",
				"seq", seq,
				"strategy", strategy,
				"sql", sql)
		}
		return run(ctx, physical, s)
	}
}

func (e *Engine) finish(ctx context.Context, logger *slog.Logger, queryID, strategy string, res *reader.Result) *reader.Result {
	if res == nil {
		res = reader.NewResult(nil)
	}
	logger.InfoContext(ctx, "query executed",
		"strategy", strategy,
		"rows", len(res.Data))
	return res.
		WithExtra(ExtraQueryID, ir.IRString(queryID)).
		WithExtra(ExtraStrategy, ir.IRString(strategy))
}

func (e *Engine) contextError(queryID, strategy string, ctxErr error) *RuntimeError {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return &RuntimeError{
			Code:     ErrCodeTimeout,
			Message:  "deadline passed before the query completed",
			QueryID:  queryID,
			Strategy: strategy,
			Err:      ctxErr,
		}
	}
	return &RuntimeError{
		Code:     ErrCodeExecutionFailed,
		Message:  "execution cancelled",
		QueryID:  queryID,
		Strategy: strategy,
		Err:      ctxErr,
	}
}
