package split

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/reader"
)

// TimeConfig configures a TimeSplit.
type TimeConfig struct {
	TimestampColumn string

	// InitialStep is the width of the first, most recent window.
	InitialStep time.Duration

	// Growth multiplies the step after a window that returned no rows.
	Growth int

	// MaxStep caps the step estimated from row density.
	MaxStep time.Duration

	// MaxOffset is the largest offset worth paging through client-side.
	MaxOffset int
}

// Time split defaults.
const (
	DefaultTimeSplitInitialStep = time.Hour
	DefaultTimeSplitGrowth      = 10
	DefaultTimeSplitMaxStep     = 30 * 24 * time.Hour
	DefaultTimeSplitMaxOffset   = 1000
)

// TimeSplit executes a time-bounded query as a sequence of windows, newest
// first, until enough rows were collected or the range is exhausted.
type TimeSplit struct {
	cfg TimeConfig
	observer
}

// NewTimeSplit creates a time split strategy. Zero values in cfg are
// replaced by the defaults.
func NewTimeSplit(cfg TimeConfig, opts ...Option) *TimeSplit {
	if cfg.InitialStep <= 0 {
		cfg.InitialStep = DefaultTimeSplitInitialStep
	}
	if cfg.Growth <= 1 {
		cfg.Growth = DefaultTimeSplitGrowth
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = DefaultTimeSplitMaxStep
	}
	if cfg.MaxOffset <= 0 {
		cfg.MaxOffset = DefaultTimeSplitMaxOffset
	}
	return &TimeSplit{cfg: cfg, observer: newObserver(opts)}
}

// Name implements Strategy.
func (t *TimeSplit) Name() string { return NameTimeSplit }

// Config returns the strategy configuration.
func (t *TimeSplit) Config() TimeConfig { return t.cfg }

// Window is one half-open [Start, End) slice of the queried range.
type Window struct {
	Start time.Time
	End   time.Time
}

// String formats the window as [start, end).
func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(ir.DateTimeLayout), w.End.Format(ir.DateTimeLayout))
}

// TryExecute implements Strategy.
func (t *TimeSplit) TryExecute(ctx context.Context, q *query.Query, s reader.Settings, run reader.Runner) (*reader.Result, bool, error) {
	if reason := t.inapplicable(q, s); reason != "" {
		return t.decline(ctx, NameTimeSplit, reason)
	}
	lowerDT, upperDT, ok := RangeOf(q, t.cfg.TimestampColumn)
	if !ok {
		return t.decline(ctx, NameTimeSplit, "no bounded time range")
	}
	lower, upper := lowerDT.Time(), upperDT.Time()
	if !lower.Before(upper) {
		return t.decline(ctx, NameTimeSplit, "empty time range")
	}

	run = t.counted(NameTimeSplit, run)
	limit, hasLimit := q.Limit()
	remainingOffset := q.Offset()
	step := t.cfg.InitialStep

	var overall *reader.Result
	end := upper
	start := maxTime(end.Add(-step), lower)
	for {
		window := q.Clone()
		SetRange(window, t.cfg.TimestampColumn, ir.NewDateTime(start), ir.NewDateTime(end))
		if err := window.SetOffset(0); err != nil {
			return nil, false, err
		}
		if hasLimit {
			got := 0
			if overall != nil {
				got = len(overall.Data)
			}
			if err := window.SetLimit(limit - got + remainingOffset); err != nil {
				return nil, false, err
			}
		}

		res, err := run(ctx, window, s)
		if err != nil {
			return nil, false, fmt.Errorf("time split: window %s: %w", Window{start, end}, err)
		}

		// Extra annotations come from the first window only
		if overall == nil {
			overall = &reader.Result{Data: append([]ir.IRObject(nil), res.Data...), Extra: res.Extra}
		} else {
			overall.Data = append(overall.Data, res.Data...)
		}
		if remainingOffset > 0 && len(overall.Data) > 0 {
			trim := min(remainingOffset, len(overall.Data))
			overall.Data = overall.Data[trim:]
			remainingOffset -= trim
		}

		total := len(overall.Data)
		if (hasLimit && total >= limit) || !start.After(lower) {
			break
		}

		step = t.nextStep(step, end.Sub(start), len(res.Data), total, limit, hasLimit)
		end = start
		start = maxTime(end.Add(-step), lower)
	}

	if hasLimit && len(overall.Data) > limit {
		overall.Data = overall.Data[:limit]
	}
	return overall, true, nil
}

// inapplicable returns the first failed precondition, or "".
func (t *TimeSplit) inapplicable(q *query.Query, s reader.Settings) string {
	switch {
	case !s.UseSplit:
		return "split disabled"
	case len(q.GroupBy()) > 0:
		return "query has group by"
	case q.Having() != nil:
		return "query has having"
	case q.LimitBy() != nil:
		return "query has limit by"
	case q.Totals():
		return "query has totals"
	case q.Offset() >= t.cfg.MaxOffset:
		return "offset too large"
	case len(q.SelectedColumns()) == 0:
		return "query selects nothing"
	}
	if limit, ok := q.Limit(); ok && limit == 0 {
		return "limit is zero"
	}
	if order := q.OrderBy(); len(order) > 0 {
		col, ok := order[0].Expression.(expr.Column)
		if !ok || col.Name != t.cfg.TimestampColumn || order[0].Direction != query.Descending {
			return "query is not ordered by time descending"
		}
	}
	return ""
}

// nextStep grows the step after an empty window and, when a limit is set,
// re-estimates it from the density of the rows collected so far.
func (t *TimeSplit) nextStep(step, window time.Duration, windowRows, total, limit int, hasLimit bool) time.Duration {
	if windowRows == 0 {
		if step > t.cfg.MaxStep/time.Duration(t.cfg.Growth) {
			return t.cfg.MaxStep
		}
		return step * time.Duration(t.cfg.Growth)
	}
	if !hasLimit || total == 0 {
		return step
	}
	estimated := time.Duration(float64(window) * float64(limit-total) / float64(windowRows))
	return min(max(estimated, time.Second), t.cfg.MaxStep)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
