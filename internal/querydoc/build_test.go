package querydoc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/reader"
	"github.com/roach88/splitq/internal/split"
	"github.com/roach88/splitq/internal/testutil"
)

func events(t *testing.T) *catalog.Storage {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	storage, err := c.Get("events")
	require.NoError(t, err)
	return storage
}

func build(t *testing.T, source query.DataSource, body string) *query.Query {
	t.Helper()
	doc, err := Parse([]byte(body))
	require.NoError(t, err)
	q, err := Build(doc, source)
	require.NoError(t, err)
	return q
}

func col(name string) expr.Column { return expr.Column{Name: name} }

func toDateTime(s string) expr.Expression {
	return expr.FunctionCall{Name: expr.FnToDateTime, Args: []expr.Expression{expr.Literal{Value: ir.IRString(s)}}}
}

func lit(v ir.IRValue) expr.Literal { return expr.Literal{Value: v} }

const wideDoc = `
selected_columns: [event_id, level, logger, server_name, transaction, timestamp, project_id]
conditions:
  - [timestamp, ">=", "2019-09-19T10:00:00"]
  - [timestamp, "<", "2019-09-19 12:00:00"]
  - [project_id, IN, [1, 2, 3]]
orderby: [-timestamp, event_id]
limit: 10
`

func TestBuild_WideQuery(t *testing.T) {
	q := build(t, events(t), wideDoc)

	var names []string
	for _, s := range q.SelectedColumns() {
		names = append(names, s.Name)
		assert.Equal(t, col(s.Name), s.Expression)
	}
	assert.Equal(t, []string{"event_id", "level", "logger", "server_name", "transaction", "timestamp", "project_id"}, names)

	want := expr.CombineAnd(
		expr.BinaryCondition(expr.FnGreaterOrEquals, col("timestamp"), toDateTime("2019-09-19T10:00:00")),
		expr.BinaryCondition(expr.FnLess, col("timestamp"), toDateTime("2019-09-19T12:00:00")),
		expr.InCondition(col("project_id"), lit(ir.IRInt(1)), lit(ir.IRInt(2)), lit(ir.IRInt(3))),
	)
	assert.True(t, expr.Equal(want, q.Condition()), "condition = %s", expr.Key(q.Condition()))

	assert.Equal(t, []query.OrderBy{
		{Direction: query.Descending, Expression: col("timestamp")},
		{Direction: query.Ascending, Expression: col("event_id")},
	}, q.OrderBy())

	limit, ok := q.Limit()
	assert.True(t, ok)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 0, q.Offset())

	lower, upper, ok := split.RangeOf(q, "timestamp")
	require.True(t, ok)
	assert.Equal(t, "2019-09-19T10:00:00", lower.String())
	assert.Equal(t, "2019-09-19T12:00:00", upper.String())
}

func TestBuild_Conditions(t *testing.T) {
	tests := []struct {
		name string
		cond string
		want expr.Expression
	}{
		{
			name: "or group",
			cond: `[[level, "=", error], [level, "=", fatal]]`,
			want: expr.CombineOr(
				expr.BinaryCondition(expr.FnEquals, col("level"), lit(ir.IRString("error"))),
				expr.BinaryCondition(expr.FnEquals, col("level"), lit(ir.IRString("fatal"))),
			),
		},
		{
			name: "is null",
			cond: `[culprit, IS NULL, null]`,
			want: expr.FunctionCall{Name: expr.FnIsNull, Args: []expr.Expression{col("culprit")}},
		},
		{
			name: "is not null",
			cond: `[culprit, "is not null", null]`,
			want: expr.FunctionCall{Name: expr.FnNot, Args: []expr.Expression{
				expr.FunctionCall{Name: expr.FnIsNull, Args: []expr.Expression{col("culprit")}},
			}},
		},
		{
			name: "not in",
			cond: `[project_id, NOT IN, [4, 5]]`,
			want: expr.BinaryCondition(expr.FnNotIn, col("project_id"), expr.Tuple(lit(ir.IRInt(4)), lit(ir.IRInt(5)))),
		},
		{
			name: "like",
			cond: `[message, LIKE, "%timeout%"]`,
			want: expr.BinaryCondition(expr.FnLike, col("message"), lit(ir.IRString("%timeout%"))),
		},
		{
			name: "not like",
			cond: `[message, NOT LIKE, "%timeout%"]`,
			want: expr.FunctionCall{Name: expr.FnNot, Args: []expr.Expression{
				expr.BinaryCondition(expr.FnLike, col("message"), lit(ir.IRString("%timeout%"))),
			}},
		},
		{
			name: "function on the left",
			cond: `[[ifNull, [culprit, "''"]], "!=", ""]`,
			want: expr.BinaryCondition(expr.FnNotEquals,
				expr.FunctionCall{Name: "ifNull", Args: []expr.Expression{col("culprit"), lit(ir.IRString(""))}},
				lit(ir.IRString(""))),
		},
		{
			name: "time column in list",
			cond: `[timestamp, IN, ["2019-09-19T10:00:00"]]`,
			want: expr.InCondition(col("timestamp"), toDateTime("2019-09-19T10:00:00")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := build(t, events(t), "selected_columns: [event_id]\nconditions:\n  - "+tt.cond+"\n")
			assert.True(t, expr.Equal(tt.want, q.Condition()), "condition = %s", expr.Key(q.Condition()))
		})
	}
}

func TestBuild_FunctionCallHeuristic(t *testing.T) {
	// A list whose first element is a string is a call on the left, not an
	// OR group
	q := build(t, events(t), "selected_columns: [event_id]\nconditions:\n  - [[ifNull, [culprit, \"''\"]], \"=\", x]\n")
	_, isOr := expr.IsCondition(q.Condition(), expr.FnOr)
	assert.False(t, isOr)
}

func TestBuild_Aggregations(t *testing.T) {
	q := build(t, events(t), `
selected_columns: [[uniq, [server_name], servers]]
aggregations:
  - ["count()", "", count]
  - [max, timestamp, last_seen]
conditions:
  - [project_id, "=", 1]
groupby: [level, servers]
having:
  - [count, ">", 10]
totals: true
`)

	names := make([]string, 0)
	for _, s := range q.SelectedColumns() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"servers", "count", "last_seen", "level"}, names)
	assert.Equal(t, expr.FunctionCall{Alias: "count", Name: "count"}, q.SelectedColumns()[1].Expression)
	assert.Equal(t, expr.FunctionCall{Alias: "last_seen", Name: "max", Args: []expr.Expression{col("timestamp")}},
		q.SelectedColumns()[2].Expression)
	assert.Equal(t, []expr.Expression{col("level"), col("servers")}, q.GroupBy())
	assert.True(t, expr.Equal(expr.BinaryCondition(expr.FnGreater, col("count"), lit(ir.IRInt(10))), q.Having()))
	assert.True(t, q.Totals())

	valid, err := q.ValidateAliases()
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestBuild_Clauses(t *testing.T) {
	q := build(t, events(t), `
selected_columns: [event_id, project_id]
limit: 5
offset: 20
limitby: [1, project_id]
sample: 0.1
granularity: 3600
`)
	limit, _ := q.Limit()
	assert.Equal(t, 5, limit)
	assert.Equal(t, 20, q.Offset())
	assert.Equal(t, &query.LimitBy{Limit: 1, Expression: col("project_id")}, q.LimitBy())
	rate, ok := q.Sample()
	assert.True(t, ok)
	assert.InDelta(t, 0.1, rate, 1e-9)
	g, ok := q.Granularity()
	assert.True(t, ok)
	assert.Equal(t, 3600, g)
	assert.Nil(t, q.Condition())
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad datetime", "selected_columns: [a]\nconditions:\n  - [timestamp, \">=\", yesterday]\n", "conditions[0][2]"},
		{"number on time column", "selected_columns: [a]\nconditions:\n  - [timestamp, \">=\", 5]\n", "conditions[0][2]"},
		{"unknown operator", "selected_columns: [a]\nconditions:\n  - [a, \"~\", 1]\n", "conditions[0][1]"},
		{"short triple", "selected_columns: [a]\nconditions:\n  - [a, \"=\"]\n", "conditions[0]"},
		{"in without list", "selected_columns: [a]\nconditions:\n  - [a, IN, 1]\n", "conditions[0][2]"},
		{"list literal", "selected_columns: [a]\nconditions:\n  - [a, \"=\", {x: 1}]\n", "conditions[0][2]"},
		{"empty order key", "selected_columns: [a]\norderby: [\"-\"]\n", "orderby[0]"},
		{"bad aggregation", "aggregations:\n  - [count]\n", "aggregations[0]"},
		{"bad limitby", "selected_columns: [a]\nlimitby: [x, a]\n", "limitby[0]"},
		{"negative limit", "selected_columns: [a]\nlimit: -1\n", "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.body))
			require.NoError(t, err)
			_, err = Build(doc, events(t))
			var buildErr *BuildError
			require.ErrorAs(t, err, &buildErr)
			assert.Equal(t, tt.field, buildErr.Field)
		})
	}
}

func TestBuild_SourceWithoutTimeColumn(t *testing.T) {
	q := build(t, plainSource{}, "selected_columns: [a]\nconditions:\n  - [timestamp, \">=\", \"2019-09-19T10:00:00\"]\n")
	want := expr.BinaryCondition(expr.FnGreaterOrEquals, col("timestamp"), lit(ir.IRString("2019-09-19T10:00:00")))
	assert.True(t, expr.Equal(want, q.Condition()))
}

type plainSource struct{}

func (plainSource) Name() string      { return "plain" }
func (plainSource) Columns() []string { return []string{"a", "timestamp"} }

// Column split applicability over legacy bodies.
func TestBuild_ColumnSplitPreconditions(t *testing.T) {
	id32 := strings.Repeat("a", 32)
	base := "conditions:\n" +
		"  - [timestamp, \">=\", \"2019-09-19T10:00:00\"]\n" +
		"  - [timestamp, \"<\", \"2019-09-19T12:00:00\"]\n" +
		"  - [project_id, IN, [1, 2, 3]]\n"
	wide := "selected_columns: [event_id, level, logger, server_name, transaction, timestamp, project_id]\n"

	tests := []struct {
		name  string
		body  string
		split bool
	}{
		{"group by", wide + base + "groupby: [timestamp]\nlimit: 10\n", false},
		{"valid", wide + base + "limit: 10\n", true},
		{"not enough columns", "selected_columns: [event_id, level, logger, server_name]\n" + base + "limit: 10\n", false},
		{"equality on id", wide + base + "  - [event_id, \"=\", " + id32 + "]\nlimit: 10\n", false},
		{"in on id", wide + base + "  - [event_id, IN, [" + id32 + ", " + strings.Repeat("b", 32) + "]]\nlimit: 10\n", false},
		{"other comparison on id", wide + base + "  - [event_id, \">\", " + id32 + "]\nlimit: 10\n", true},
	}
	storage := events(t)
	strategy := storage.SplitStrategies(split.ColumnConfig{}, split.TimeConfig{})[0]
	require.Equal(t, split.NameColumnSplit, strategy.Name())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := build(t, storage, tt.body)
			runner := testutil.NewRecordingRunner(testutil.Response{Rows: []ir.IRObject{{
				"event_id":   ir.IRString("asd123"),
				"project_id": ir.IRInt(123),
				"timestamp":  ir.IRString("2019-10-01 22:33:42"),
			}}})
			_, ok, err := strategy.TryExecute(context.Background(), q, reader.Settings{UseSplit: true}, runner.Run)
			require.NoError(t, err)
			assert.Equal(t, tt.split, ok)
		})
	}
}
