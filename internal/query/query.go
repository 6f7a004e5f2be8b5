package query

import (
	"slices"

	"github.com/roach88/splitq/internal/expr"
)

// DataSource is the relational source a query reads from.
type DataSource interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Columns returns the declared column names.
	Columns() []string
}

// Direction is the sort direction of an ORDER BY clause.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// SelectedExpression pairs an output column name with the expression that
// produces it. Name may be empty.
type SelectedExpression struct {
	Name       string
	Expression expr.Expression
}

// OrderBy is one ORDER BY key.
type OrderBy struct {
	Direction  Direction
	Expression expr.Expression
}

// LimitBy caps the number of rows per distinct value of Expression.
type LimitBy struct {
	Limit      int
	Expression expr.Expression
}

// Query is the mutable aggregate of a single analytical query.
//
// Create one with New; the zero value has no data source and no limit.
type Query struct {
	dataSource DataSource
	entity     string

	selected    []SelectedExpression
	arrayJoin   expr.Expression
	condition   expr.Expression
	prewhere    expr.Expression
	groupBy     []expr.Expression
	having      expr.Expression
	orderBy     []OrderBy
	limitBy     *LimitBy
	sample      *float64
	limit       *int
	offset      int
	totals      bool
	granularity *int
	final       bool
}

// Option configures a new Query.
type Option func(*Query)

// New creates a query over source. source may be nil and bound later with
// SetDataSource.
func New(source DataSource, opts ...Option) *Query {
	q := &Query{dataSource: source}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// WithSelected sets the select list.
func WithSelected(cols ...SelectedExpression) Option {
	return func(q *Query) { q.selected = slices.Clone(cols) }
}

// WithCondition sets the WHERE condition.
func WithCondition(cond expr.Expression) Option {
	return func(q *Query) { q.condition = cond }
}

// WithGroupBy sets the GROUP BY keys.
func WithGroupBy(keys ...expr.Expression) Option {
	return func(q *Query) { q.groupBy = slices.Clone(keys) }
}

// WithOrderBy sets the ORDER BY keys.
func WithOrderBy(keys ...OrderBy) Option {
	return func(q *Query) { q.orderBy = slices.Clone(keys) }
}

// WithLimit sets the row limit. Negative values are ignored.
func WithLimit(n int) Option {
	return func(q *Query) {
		if n >= 0 {
			q.limit = &n
		}
	}
}

// WithOffset sets the row offset. Negative values are ignored.
func WithOffset(n int) Option {
	return func(q *Query) {
		if n >= 0 {
			q.offset = n
		}
	}
}

// DataSource returns the bound data source.
func (q *Query) DataSource() (DataSource, error) {
	if q.dataSource == nil {
		return nil, newError(ErrCodeUnboundDataSource, "data source has not been provided yet")
	}
	return q.dataSource, nil
}

// SetDataSource binds or replaces the data source.
func (q *Query) SetDataSource(source DataSource) {
	q.dataSource = source
}

// SetEntity binds the entity key. It can be called once.
func (q *Query) SetEntity(key string) error {
	if q.entity != "" {
		return newError(ErrCodeInvariantViolation, "entity already bound")
	}
	if key == "" {
		return newError(ErrCodeInvariantViolation, "entity key is empty")
	}
	q.entity = key
	return nil
}

// Entity returns the bound entity key.
func (q *Query) Entity() (string, error) {
	if q.entity == "" {
		return "", newError(ErrCodeInvariantViolation, "entity not bound")
	}
	return q.entity, nil
}

// SelectedColumns returns the select list in output order.
func (q *Query) SelectedColumns() []SelectedExpression { return q.selected }

// SetSelectedColumns replaces the select list.
func (q *Query) SetSelectedColumns(cols []SelectedExpression) {
	q.selected = slices.Clone(cols)
}

// ArrayJoin returns the ARRAY JOIN expression, or nil.
func (q *Query) ArrayJoin() expr.Expression { return q.arrayJoin }

// SetArrayJoin replaces the ARRAY JOIN expression. nil removes it.
func (q *Query) SetArrayJoin(e expr.Expression) { q.arrayJoin = e }

// Condition returns the WHERE condition, or nil.
func (q *Query) Condition() expr.Expression { return q.condition }

// SetCondition replaces the WHERE condition. nil removes it.
func (q *Query) SetCondition(cond expr.Expression) { q.condition = cond }

// Prewhere returns the PREWHERE condition, or nil.
func (q *Query) Prewhere() expr.Expression { return q.prewhere }

// SetPrewhere replaces the PREWHERE condition.
func (q *Query) SetPrewhere(cond expr.Expression) { q.prewhere = cond }

// GroupBy returns the grouping keys.
func (q *Query) GroupBy() []expr.Expression { return q.groupBy }

// SetGroupBy replaces the grouping keys.
func (q *Query) SetGroupBy(keys []expr.Expression) { q.groupBy = slices.Clone(keys) }

// Having returns the HAVING condition, or nil.
func (q *Query) Having() expr.Expression { return q.having }

// SetHaving replaces the HAVING condition.
func (q *Query) SetHaving(cond expr.Expression) { q.having = cond }

// OrderBy returns the ordering keys, most significant first.
func (q *Query) OrderBy() []OrderBy { return q.orderBy }

// SetOrderBy replaces the ordering keys.
func (q *Query) SetOrderBy(keys []OrderBy) { q.orderBy = slices.Clone(keys) }

// Totals reports whether WITH TOTALS is requested.
func (q *Query) Totals() bool { return q.totals }

// SetTotals sets WITH TOTALS.
func (q *Query) SetTotals(totals bool) { q.totals = totals }

// Final reports whether the FINAL modifier is set.
func (q *Query) Final() bool { return q.final }

// SetFinal sets the FINAL modifier.
func (q *Query) SetFinal(final bool) { q.final = final }

// Offset returns the row offset. Zero means none.
func (q *Query) Offset() int { return q.offset }

// AddCondition ANDs cond onto the existing top-level condition. The new
// condition becomes the left operand.
func (q *Query) AddCondition(cond expr.Expression) {
	if q.condition == nil {
		q.condition = cond
		return
	}
	q.condition = expr.BinaryCondition(expr.FnAnd, cond, q.condition)
}

// LimitBy returns the LIMIT BY clause, or nil.
func (q *Query) LimitBy() *LimitBy {
	if q.limitBy == nil {
		return nil
	}
	lb := *q.limitBy
	return &lb
}

// SetLimitBy replaces the LIMIT BY clause. nil removes it.
func (q *Query) SetLimitBy(lb *LimitBy) error {
	if lb == nil {
		q.limitBy = nil
		return nil
	}
	if lb.Limit < 0 {
		return newError(ErrCodeInvariantViolation, "limit by must be non-negative, got %d", lb.Limit)
	}
	copied := *lb
	q.limitBy = &copied
	return nil
}

// Sample returns the sampling rate and whether one is set.
func (q *Query) Sample() (float64, bool) {
	if q.sample == nil {
		return 0, false
	}
	return *q.sample, true
}

// SetSample sets the sampling rate.
func (q *Query) SetSample(rate float64) { q.sample = &rate }

// ClearSample removes sampling.
func (q *Query) ClearSample() { q.sample = nil }

// Limit returns the row limit and whether one is set.
func (q *Query) Limit() (int, bool) {
	if q.limit == nil {
		return 0, false
	}
	return *q.limit, true
}

// SetLimit replaces the row limit.
func (q *Query) SetLimit(n int) error {
	if n < 0 {
		return newError(ErrCodeInvariantViolation, "limit must be non-negative, got %d", n)
	}
	q.limit = &n
	return nil
}

// ClearLimit removes the row limit.
func (q *Query) ClearLimit() { q.limit = nil }

// SetOffset replaces the row offset.
func (q *Query) SetOffset(n int) error {
	if n < 0 {
		return newError(ErrCodeInvariantViolation, "offset must be non-negative, got %d", n)
	}
	q.offset = n
	return nil
}

// Granularity returns the time bucket granularity in seconds and whether
// one is set.
func (q *Query) Granularity() (int, bool) {
	if q.granularity == nil {
		return 0, false
	}
	return *q.granularity, true
}

// SetGranularity replaces the granularity.
func (q *Query) SetGranularity(seconds int) { q.granularity = &seconds }

// Clone returns an independent copy. Expressions are shared, which is safe
// because they are never mutated.
func (q *Query) Clone() *Query {
	c := *q
	c.selected = slices.Clone(q.selected)
	c.groupBy = slices.Clone(q.groupBy)
	c.orderBy = slices.Clone(q.orderBy)
	if q.limitBy != nil {
		lb := *q.limitBy
		c.limitBy = &lb
	}
	if q.sample != nil {
		s := *q.sample
		c.sample = &s
	}
	if q.limit != nil {
		l := *q.limit
		c.limit = &l
	}
	if q.granularity != nil {
		g := *q.granularity
		c.granularity = &g
	}
	return &c
}
