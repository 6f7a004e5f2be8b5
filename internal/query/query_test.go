package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
)

type testSource []string

func (s testSource) Name() string      { return "test" }
func (s testSource) Columns() []string { return s }

var eventsSource = testSource{"event_id", "project_id", "timestamp", "level", "logger", "tags.key", "tags.value"}

func col(name string) expr.Column { return expr.Column{Name: name} }

func selected(names ...string) []SelectedExpression {
	out := make([]SelectedExpression, len(names))
	for i, n := range names {
		out[i] = SelectedExpression{Name: n, Expression: col(n)}
	}
	return out
}

func TestQuery_DataSourceUnbound(t *testing.T) {
	q := New(nil)
	_, err := q.DataSource()
	require.Error(t, err)
	assert.True(t, IsUnboundDataSource(err))

	_, err = q.ValidateAliases()
	assert.True(t, IsUnboundDataSource(err))

	q.SetDataSource(eventsSource)
	src, err := q.DataSource()
	require.NoError(t, err)
	assert.Equal(t, "test", src.Name())
}

func TestQuery_EntitySingleAssignment(t *testing.T) {
	q := New(eventsSource)

	_, err := q.Entity()
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
	assert.Contains(t, err.Error(), "entity not bound")

	require.NoError(t, q.SetEntity("events"))
	key, err := q.Entity()
	require.NoError(t, err)
	assert.Equal(t, "events", key)

	err = q.SetEntity("transactions")
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
	assert.Contains(t, err.Error(), "entity already bound")
}

func TestQuery_LimitOffset(t *testing.T) {
	q := New(eventsSource, WithLimit(10), WithOffset(5))

	limit, ok := q.Limit()
	require.True(t, ok)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 5, q.Offset())

	assert.True(t, IsInvariantViolation(q.SetLimit(-1)))
	assert.True(t, IsInvariantViolation(q.SetOffset(-1)))
	assert.Equal(t, 5, q.Offset(), "rejected setter must not change the value")

	q.ClearLimit()
	_, ok = q.Limit()
	assert.False(t, ok)

	assert.Equal(t, 0, New(nil).Offset())
}

func TestQuery_OptionalScalars(t *testing.T) {
	q := New(eventsSource)

	_, ok := q.Sample()
	assert.False(t, ok)
	q.SetSample(0.1)
	rate, ok := q.Sample()
	require.True(t, ok)
	assert.InDelta(t, 0.1, rate, 1e-9)

	_, ok = q.Granularity()
	assert.False(t, ok)
	q.SetGranularity(3600)
	g, _ := q.Granularity()
	assert.Equal(t, 3600, g)

	assert.False(t, q.Final())
	q.SetFinal(true)
	assert.True(t, q.Final())

	assert.Nil(t, q.LimitBy())
	require.NoError(t, q.SetLimitBy(&LimitBy{Limit: 1, Expression: col("event_id")}))
	assert.Equal(t, 1, q.LimitBy().Limit)
	assert.Error(t, q.SetLimitBy(&LimitBy{Limit: -1}))
}

func TestQuery_AddCondition(t *testing.T) {
	first := expr.BinaryCondition(expr.FnEquals, col("level"), expr.Literal{Value: ir.IRString("error")})
	second := expr.BinaryCondition(expr.FnGreater, col("event_id"), expr.Literal{Value: ir.IRString("a")})

	q := New(eventsSource)
	q.AddCondition(first)
	assert.True(t, expr.Equal(first, q.Condition()))

	q.AddCondition(second)
	want := expr.BinaryCondition(expr.FnAnd, second, first)
	assert.True(t, expr.Equal(want, q.Condition()))
}

func TestQuery_CloneIsIndependent(t *testing.T) {
	q := New(eventsSource,
		WithSelected(selected("event_id", "level")...),
		WithLimit(10),
		WithOrderBy(OrderBy{Direction: Descending, Expression: col("timestamp")}),
	)
	require.NoError(t, q.SetEntity("events"))

	c := q.Clone()
	c.SetSelectedColumns(selected("event_id"))
	require.NoError(t, c.SetLimit(3))
	c.OrderBy()[0] = OrderBy{Direction: Ascending, Expression: col("level")}
	c.AddCondition(col("x"))

	assert.Len(t, q.SelectedColumns(), 2)
	limit, _ := q.Limit()
	assert.Equal(t, 10, limit)
	assert.Equal(t, Descending, q.OrderBy()[0].Direction)
	assert.Nil(t, q.Condition())

	entity, err := c.Entity()
	require.NoError(t, err)
	assert.Equal(t, "events", entity)
}

func TestIdentityTranslate(t *testing.T) {
	q := New(eventsSource, WithSelected(selected("event_id")...))
	phys := IdentityTranslate(q)
	assert.NotSame(t, q, phys)
	assert.Equal(t, q.SelectedColumns(), phys.SelectedColumns())
}
