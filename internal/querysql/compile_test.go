package querysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
)

type tableSource struct{}

func (tableSource) Name() string       { return "events" }
func (tableSource) Columns() []string  { return []string{"event_id", "project_id", "timestamp", "message"} }
func (tableSource) LocalTable() string { return "events_local" }
func (tableSource) DistTable() string  { return "events_dist" }

func col(name string) expr.Column { return expr.Column{Name: name} }

func sel(names ...string) []query.SelectedExpression {
	out := make([]query.SelectedExpression, len(names))
	for i, n := range names {
		out[i] = query.SelectedExpression{Name: n, Expression: col(n)}
	}
	return out
}

func ts(s string) ir.IRDateTime {
	t, err := time.Parse(ir.DateTimeLayout, s)
	if err != nil {
		panic(err)
	}
	return ir.NewDateTime(t)
}

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler()

	q := query.New(tableSource{},
		query.WithSelected(sel("event_id", "message")...),
		query.WithCondition(expr.BinaryCondition(expr.FnEquals, col("project_id"), expr.Literal{Value: ir.IRInt(1)})),
	)

	sql, params, err := compiler.Compile(q)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT [event_id] AS [event_id], [message] AS [message] FROM [events_local] WHERE ([project_id] = ?)`,
		sql)
	assert.Equal(t, []any{int64(1)}, params)
}

func TestCompile_ValuesNeverInterpolated(t *testing.T) {
	compiler := NewSQLCompiler()

	q := query.New(tableSource{},
		query.WithSelected(sel("event_id")...),
		query.WithCondition(expr.CombineAnd(
			expr.BinaryCondition(expr.FnLike, col("message"), expr.Literal{Value: ir.IRString("%'; DROP TABLE x; --")}),
			expr.BinaryCondition(expr.FnGreaterOrEquals, col("timestamp"),
				expr.FunctionCall{Name: expr.FnToDateTime, Args: []expr.Expression{expr.Literal{Value: ts("2024-01-01T00:00:00")}}}),
		)),
	)

	sql, params, err := compiler.Compile(q)
	require.NoError(t, err)

	assert.NotContains(t, sql, "DROP")
	assert.NotContains(t, sql, "2024")
	assert.Contains(t, sql, `WHERE (([message] LIKE ?) AND ([timestamp] >= ?))`)
	assert.Equal(t, []any{"%'; DROP TABLE x; --", "2024-01-01T00:00:00"}, params)
}

func TestCompile_Clauses(t *testing.T) {
	compiler := NewSQLCompiler()

	q := query.New(tableSource{},
		query.WithSelected(
			query.SelectedExpression{Name: "project_id", Expression: col("project_id")},
			query.SelectedExpression{Name: "count", Expression: expr.FunctionCall{Alias: "count", Name: "count"}},
		),
		query.WithGroupBy(col("project_id")),
		query.WithOrderBy(query.OrderBy{Direction: query.Descending, Expression: col("count")}),
		query.WithLimit(10),
		query.WithOffset(20),
	)
	q.SetHaving(expr.BinaryCondition(expr.FnGreater, col("count"), expr.Literal{Value: ir.IRInt(3)}))

	sql, params, err := compiler.Compile(q)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT [project_id] AS [project_id], count(*) AS [count] FROM [events_local] GROUP BY [project_id] HAVING ([count] > ?) ORDER BY [count] DESC LIMIT 10 OFFSET 20`,
		sql)
	assert.Equal(t, []any{int64(3)}, params)
}

func TestCompile_OffsetWithoutLimit(t *testing.T) {
	q := query.New(tableSource{}, query.WithSelected(sel("event_id")...), query.WithOffset(5))

	sql, _, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "LIMIT -1 OFFSET 5")
}

func TestCompile_TupleIn(t *testing.T) {
	pair := func(p int64, e string) expr.Expression {
		return expr.LiteralsTuple("", ir.IRInt(p), ir.IRString(e))
	}
	q := query.New(tableSource{},
		query.WithSelected(sel("event_id")...),
		query.WithCondition(expr.CombineAnd(
			expr.InCondition(expr.Tuple(col("project_id"), col("event_id")), pair(1, "a"), pair(2, "b")),
			expr.InCondition(col("project_id"), expr.Literal{Value: ir.IRInt(1)}, expr.Literal{Value: ir.IRInt(2)}),
		)),
	)

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)

	assert.Contains(t, sql, `(([project_id], [event_id]) IN (VALUES (?, ?), (?, ?)))`)
	assert.Contains(t, sql, `([project_id] IN (?, ?))`)
	assert.Equal(t, []any{int64(1), "a", int64(2), "b", int64(1), int64(2)}, params)
}

func TestCompile_EmptyIn(t *testing.T) {
	q := query.New(tableSource{},
		query.WithSelected(sel("event_id")...),
		query.WithCondition(expr.InCondition(col("project_id"))),
	)

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE (1 = 0)")
	assert.Empty(t, params)
}

func TestCompile_RejectsUnsupported(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*query.Query)
		want   string
	}{
		{"array join", func(q *query.Query) { q.SetArrayJoin(col("tags.key")) }, "ARRAY JOIN"},
		{"prewhere", func(q *query.Query) { q.SetPrewhere(col("message")) }, "PREWHERE"},
		{"limit by", func(q *query.Query) {
			require.NoError(t, q.SetLimitBy(&query.LimitBy{Limit: 1, Expression: col("project_id")}))
		}, "LIMIT BY"},
		{"final", func(q *query.Query) { q.SetFinal(true) }, "FINAL"},
		{"sample", func(q *query.Query) { q.SetSample(0.1) }, "SAMPLE"},
		{"totals", func(q *query.Query) { q.SetTotals(true) }, "WITH TOTALS"},
		{"subscript", func(q *query.Query) {
			q.SetCondition(expr.BinaryCondition(expr.FnEquals,
				expr.SubscriptReference{Column: col("tags"), Key: expr.Literal{Value: ir.IRString("env")}},
				expr.Literal{Value: ir.IRString("prod")}))
		}, "subscript"},
		{"lambda", func(q *query.Query) {
			q.SetSelectedColumns([]query.SelectedExpression{{Name: "f", Expression: expr.Lambda{Parameters: []string{"x"}, Body: expr.Argument{Name: "x"}}}})
		}, "lambda"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := query.New(tableSource{}, query.WithSelected(sel("event_id")...))
			tc.mutate(q)

			_, _, err := NewSQLCompiler().Compile(q)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupported)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCompile_NilAndUnbound(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(nil)
	assert.Error(t, err)

	_, _, err = NewSQLCompiler().Compile(&query.Query{})
	require.Error(t, err)
	assert.True(t, query.IsUnboundDataSource(err))
}

func TestIRValueToParam(t *testing.T) {
	testCases := []struct {
		name    string
		in      ir.IRValue
		want    any
		wantErr bool
	}{
		{"string", ir.IRString("a"), "a", false},
		{"int", ir.IRInt(7), int64(7), false},
		{"float", ir.IRFloat(1.5), 1.5, false},
		{"bool", ir.IRBool(true), true, false},
		{"null", ir.IRNull{}, nil, false},
		{"datetime", ts("2024-02-03T04:05:06"), "2024-02-03T04:05:06", false},
		{"array", ir.IRArray{ir.IRInt(1)}, nil, true},
		{"object", ir.IRObject{}, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := irValueToParam(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParamsIR(t *testing.T) {
	got := ParamsIR([]any{"a", int64(1), nil, 2.5})
	assert.Equal(t, ir.IRArray{ir.IRString("a"), ir.IRInt(1), ir.IRNull{}, ir.IRFloat(2.5)}, got)
}
