package split

import (
	"context"
	"log/slog"

	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/reader"
)

// Strategy names as they appear in logs, metrics and result annotations.
const (
	NameColumnSplit = "column_split"
	NameTimeSplit   = "time_split"
)

// Strategy executes a query in a different physical shape, or declines.
type Strategy interface {
	// Name identifies the strategy.
	Name() string

	// TryExecute runs q through run. See the package documentation for the
	// meaning of the return values.
	TryExecute(ctx context.Context, q *query.Query, s reader.Settings, run reader.Runner) (*reader.Result, bool, error)
}

// Recorder receives strategy events. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	// SubQuery is called once per sub-query a strategy issues.
	SubQuery(strategy string)

	// ColumnSplitOverflow is called when the narrow query returned more
	// pairs than the second query may carry.
	ColumnSplitOverflow()
}

type nopRecorder struct{}

func (nopRecorder) SubQuery(string)      {}
func (nopRecorder) ColumnSplitOverflow() {}

// observer holds what every strategy needs to report its decisions.
type observer struct {
	logger   *slog.Logger
	recorder Recorder
}

func newObserver(opts []Option) observer {
	o := observer{logger: slog.Default(), recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a strategy.
type Option func(*observer)

// WithLogger sets the logger for strategy decisions. Decisions are logged at
// Debug.
func WithLogger(logger *slog.Logger) Option {
	return func(o *observer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option {
	return func(o *observer) {
		if r != nil {
			o.recorder = r
		}
	}
}

// decline logs why the strategy does not apply.
func (o observer) decline(ctx context.Context, strategy, reason string, args ...any) (*reader.Result, bool, error) {
	o.logger.DebugContext(ctx, "split strategy declined",
		append([]any{"strategy", strategy, "reason", reason}, args...)...)
	return nil, false, nil
}

// counted wraps run so every call is reported as a sub-query.
func (o observer) counted(strategy string, run reader.Runner) reader.Runner {
	return func(ctx context.Context, q *query.Query, s reader.Settings) (*reader.Result, error) {
		o.recorder.SubQuery(strategy)
		return run(ctx, q, s)
	}
}
