package metrics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/engine"
	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/optimize"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/reader"
	"github.com/roach88/splitq/internal/split"
	"github.com/roach88/splitq/internal/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.StrategyOutcome(split.NameColumnSplit, engine.OutcomeDeclined)
	m.StrategyOutcome(split.NameColumnSplit, engine.OutcomeDeclined)
	m.StrategyOutcome(split.NameTimeSplit, engine.OutcomeSucceeded)
	m.SubQuery(split.NameTimeSplit)
	m.DirectExecution()
	m.ColumnSplitOverflow()

	assert.Equal(t, 2.0, promtest.ToFloat64(m.outcomes.WithLabelValues(split.NameColumnSplit, engine.OutcomeDeclined)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.outcomes.WithLabelValues(split.NameTimeSplit, engine.OutcomeSucceeded)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.subQueries.WithLabelValues(split.NameTimeSplit)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.direct))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.overflow))
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.StrategyOutcome(split.NameColumnSplit, engine.OutcomeSucceeded)
	m.SubQuery(split.NameColumnSplit)
	m.PartOptimized(optimize.MetricsTags("errors_local", ""), 2*time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"splitq_strategy_outcomes_total",
		"splitq_subqueries_total",
		"splitq_direct_executions_total",
		"splitq_column_split_intermediate_overflow_total",
		"splitq_optimize_partition_duration_seconds",
	}, names)
}

func TestMetrics_WiredIntoEngine(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	storage, err := c.Get("events")
	require.NoError(t, err)

	m := New(prometheus.NewRegistry())
	strategies := storage.SplitStrategies(split.ColumnConfig{}, split.TimeConfig{}, split.WithRecorder(m))
	e := engine.New(strategies,
		engine.WithMetrics(m),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	// Two columns: the column split declines, the time split runs one window
	dt := func(s string) expr.Expression {
		return expr.FunctionCall{Name: expr.FnToDateTime, Args: []expr.Expression{expr.Literal{Value: ir.IRString(s)}}}
	}
	q := query.New(storage,
		query.WithSelected(
			query.SelectedExpression{Name: "event_id", Expression: expr.Column{Name: "event_id"}},
			query.SelectedExpression{Name: "timestamp", Expression: expr.Column{Name: "timestamp"}},
		),
		query.WithCondition(expr.CombineAnd(
			expr.BinaryCondition(expr.FnGreaterOrEquals, expr.Column{Name: "timestamp"}, dt("2019-09-19T10:00:00")),
			expr.BinaryCondition(expr.FnLess, expr.Column{Name: "timestamp"}, dt("2019-09-19T11:00:00")),
		)),
		query.WithLimit(10),
	)
	runner := testutil.NewRecordingRunner(testutil.Response{Rows: []ir.IRObject{{"event_id": ir.IRString("a")}}})

	_, err = e.Execute(context.Background(), q, reader.Settings{UseSplit: true}, runner.Run)
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.outcomes.WithLabelValues(split.NameColumnSplit, engine.OutcomeDeclined)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.outcomes.WithLabelValues(split.NameTimeSplit, engine.OutcomeSucceeded)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.subQueries.WithLabelValues(split.NameTimeSplit)))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.direct))
}

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
