package query

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
)

func fullQuery() *Query {
	q := New(eventsSource,
		WithSelected(selected("event_id", "level")...),
		WithCondition(expr.BinaryCondition(expr.FnEquals, col("project_id"), expr.Literal{Value: ir.IRInt(1)})),
		WithGroupBy(col("level")),
		WithOrderBy(OrderBy{Direction: Descending, Expression: col("timestamp")}),
	)
	q.SetArrayJoin(col("tags.key"))
	q.SetHaving(expr.BinaryCondition(expr.FnGreater, expr.FunctionCall{Name: "count"}, expr.Literal{Value: ir.IRInt(1)}))
	q.SetPrewhere(expr.BinaryCondition(expr.FnEquals, col("logger"), expr.Literal{Value: ir.IRString("x")}))
	return q
}

func TestAllExpressions_Order(t *testing.T) {
	var got []string
	for e := range fullQuery().AllExpressions() {
		got = append(got, expr.Key(e))
	}
	assert.Equal(t, []string{
		"col:event_id",
		"col:level",
		"col:tags.key",
		"fn:equals(col:project_id,lit:1)",
		"col:project_id",
		"lit:1",
		"col:level",
		"fn:greater(fn:count(),lit:1)",
		"fn:count()",
		"lit:1",
		"col:timestamp",
	}, got, "prewhere is not traversed and duplicates are kept")
}

func TestAllExpressions_StopsEarly(t *testing.T) {
	n := 0
	for range fullQuery().AllExpressions() {
		n++
		if n == 4 {
			break
		}
	}
	assert.Equal(t, 4, n)
}

func TestTransformExpressions_Identity(t *testing.T) {
	q := fullQuery()
	before := slices.Collect(q.AllExpressions())
	q.TransformExpressions(func(e expr.Expression) expr.Expression { return e })
	after := slices.Collect(q.AllExpressions())

	require.Len(t, after, len(before))
	for i := range before {
		assert.True(t, expr.Equal(before[i], after[i]))
	}
}

func TestTransformExpressions_RewritesPrewhere(t *testing.T) {
	q := fullQuery()
	clone := q.Clone()
	q.TransformExpressions(func(e expr.Expression) expr.Expression {
		if c, ok := e.(expr.Column); ok && c.Name == "logger" {
			return expr.Column{Name: "server_name"}
		}
		return e
	})

	args := q.Prewhere().(expr.FunctionCall).Args
	assert.Equal(t, "server_name", args[0].(expr.Column).Name)
	cloneArgs := clone.Prewhere().(expr.FunctionCall).Args
	assert.Equal(t, "logger", cloneArgs[0].(expr.Column).Name, "clone shares no mutable state")
}

// qualifier prefixes every column with a table name.
type qualifier struct{ table string }

func (v qualifier) VisitColumn(c expr.Column) expr.Expression {
	c.Table = v.table
	return c
}
func (v qualifier) VisitLiteral(l expr.Literal) expr.Expression { return l }
func (v qualifier) VisitFunctionCall(f expr.FunctionCall) expr.Expression {
	args := make([]expr.Expression, len(f.Args))
	for i, a := range f.Args {
		args[i] = expr.Accept(a, v)
	}
	f.Args = args
	return f
}
func (v qualifier) VisitCurriedFunctionCall(c expr.CurriedFunctionCall) expr.Expression { return c }
func (v qualifier) VisitSubscriptReference(s expr.SubscriptReference) expr.Expression   { return s }
func (v qualifier) VisitLambda(l expr.Lambda) expr.Expression                           { return l }
func (v qualifier) VisitArgument(a expr.Argument) expr.Expression                       { return a }

func TestTransformVisitor(t *testing.T) {
	q := fullQuery()
	q.TransformVisitor(qualifier{table: "e"})

	for _, c := range q.ReferencedColumns() {
		assert.Equal(t, "e", c.Table, c.Name)
	}
	args := q.Prewhere().(expr.FunctionCall).Args
	assert.Equal(t, "e", args[0].(expr.Column).Table)
}

func TestReferencedColumns_Deduplicated(t *testing.T) {
	cols := fullQuery().ReferencedColumns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"event_id", "level", "tags.key", "project_id", "timestamp"}, names)
}

func TestReferencedSubscripts(t *testing.T) {
	tag := expr.SubscriptReference{Alias: "_snuba_tags[env]", Column: col("tags"), Key: expr.Literal{Value: ir.IRString("env")}}
	q := New(eventsSource, WithSelected(
		SelectedExpression{Name: "env", Expression: tag},
		SelectedExpression{Name: "env2", Expression: tag},
	))
	assert.Len(t, q.ReferencedSubscripts(), 1)
}

func TestConditionColumns(t *testing.T) {
	cols := fullQuery().ConditionColumns()
	require.Len(t, cols, 1)
	assert.Equal(t, "project_id", cols[0].Name)
	assert.Nil(t, New(eventsSource).ConditionColumns())
}
