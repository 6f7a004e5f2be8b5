package split

import (
	"time"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/reader"
)

type eventsSource struct{}

func (eventsSource) Name() string { return "events" }
func (eventsSource) Columns() []string {
	return []string{"event_id", "project_id", "timestamp", "level", "logger", "server_name", "transaction"}
}

var (
	wideColumns = []string{"event_id", "level", "logger", "server_name", "transaction", "timestamp", "project_id"}
	splitOn     = reader.Settings{UseSplit: true}
)

func eventsColumnConfig() ColumnConfig {
	return ColumnConfig{IDColumn: "event_id", ProjectColumn: "project_id", TimestampColumn: "timestamp"}
}

func col(name string) expr.Column { return expr.Column{Name: name} }

func str(s string) expr.Literal { return expr.Literal{Value: ir.IRString(s)} }

func dt(s string) ir.IRDateTime {
	v, err := ir.ParseDateTime(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mustTime(s string) time.Time { return dt(s).Time() }

func selectCols(names ...string) []query.SelectedExpression {
	out := make([]query.SelectedExpression, len(names))
	for i, n := range names {
		out[i] = query.SelectedExpression{Name: n, Expression: col(n)}
	}
	return out
}

// timeBounded builds ts >= from AND ts < to AND project_id IN (1, 2, 3)
// plus extra conditions.
func timeBounded(from, to string, extra ...expr.Expression) expr.Expression {
	conds := []expr.Expression{
		expr.BinaryCondition(expr.FnGreaterOrEquals, col("timestamp"), expr.FunctionCall{Name: expr.FnToDateTime, Args: []expr.Expression{str(from)}}),
		expr.BinaryCondition(expr.FnLess, col("timestamp"), expr.FunctionCall{Name: expr.FnToDateTime, Args: []expr.Expression{str(to)}}),
		expr.InCondition(col("project_id"),
			expr.Literal{Value: ir.IRInt(1)}, expr.Literal{Value: ir.IRInt(2)}, expr.Literal{Value: ir.IRInt(3)}),
	}
	return expr.CombineAnd(append(conds, extra...)...)
}

func wideQuery(opts ...query.Option) *query.Query {
	base := []query.Option{
		query.WithSelected(selectCols(wideColumns...)...),
		query.WithCondition(timeBounded("2019-09-19T10:00:00", "2019-09-19T12:00:00")),
		query.WithLimit(10),
	}
	return query.New(eventsSource{}, append(base, opts...)...)
}

func selectedNames(q *query.Query) []string {
	var out []string
	for _, s := range q.SelectedColumns() {
		out = append(out, s.Name)
	}
	return out
}

type countingRecorder struct {
	subQueries map[string]int
	overflows  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{subQueries: map[string]int{}}
}

func (r *countingRecorder) SubQuery(strategy string) { r.subQueries[strategy]++ }
func (r *countingRecorder) ColumnSplitOverflow()     { r.overflows++ }
