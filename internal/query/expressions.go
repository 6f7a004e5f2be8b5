package query

import (
	"iter"

	"github.com/roach88/splitq/internal/expr"
)

// roots yields the root expressions in traversal order.
func (q *Query) roots() iter.Seq[expr.Expression] {
	return func(yield func(expr.Expression) bool) {
		for _, s := range q.selected {
			if !yield(s.Expression) {
				return
			}
		}
		for _, e := range []expr.Expression{q.arrayJoin, q.condition} {
			if e != nil && !yield(e) {
				return
			}
		}
		for _, g := range q.groupBy {
			if !yield(g) {
				return
			}
		}
		if q.having != nil && !yield(q.having) {
			return
		}
		for _, o := range q.orderBy {
			if !yield(o.Expression) {
				return
			}
		}
	}
}

// AllExpressions yields every expression reachable from the select list,
// array join, condition, group by, having and order by, in that order.
// Shared sub-expressions are yielded once per occurrence.
func (q *Query) AllExpressions() iter.Seq[expr.Expression] {
	return func(yield func(expr.Expression) bool) {
		for root := range q.roots() {
			for e := range expr.All(root) {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// TransformExpressions replaces every root expression, prewhere included,
// with expr.Transform(root, f). If f panics the query is left partially
// rewritten.
func (q *Query) TransformExpressions(f func(expr.Expression) expr.Expression) {
	q.replaceRoots(func(e expr.Expression) expr.Expression {
		return expr.Transform(e, f)
	})
}

// TransformVisitor replaces every root expression, prewhere included, with
// the result of visiting it. The visitor decides how far to recurse.
func (q *Query) TransformVisitor(v expr.Visitor[expr.Expression]) {
	q.replaceRoots(func(e expr.Expression) expr.Expression {
		return expr.Accept(e, v)
	})
}

func (q *Query) replaceRoots(f func(expr.Expression) expr.Expression) {
	apply := func(e expr.Expression) expr.Expression {
		if e == nil {
			return nil
		}
		return f(e)
	}

	selected := make([]SelectedExpression, len(q.selected))
	for i, s := range q.selected {
		selected[i] = SelectedExpression{Name: s.Name, Expression: apply(s.Expression)}
	}
	q.selected = selected
	q.arrayJoin = apply(q.arrayJoin)
	q.condition = apply(q.condition)
	q.prewhere = apply(q.prewhere)

	groupBy := make([]expr.Expression, len(q.groupBy))
	for i, g := range q.groupBy {
		groupBy[i] = apply(g)
	}
	q.groupBy = groupBy
	q.having = apply(q.having)

	orderBy := make([]OrderBy, len(q.orderBy))
	for i, o := range q.orderBy {
		orderBy[i] = OrderBy{Direction: o.Direction, Expression: apply(o.Expression)}
	}
	q.orderBy = orderBy
}

// ReferencedColumns returns the distinct columns in AllExpressions, in first
// seen order.
func (q *Query) ReferencedColumns() []expr.Column {
	return collect[expr.Column](q.AllExpressions())
}

// ReferencedSubscripts returns the distinct subscript references in
// AllExpressions, in first seen order.
func (q *Query) ReferencedSubscripts() []expr.SubscriptReference {
	return collect[expr.SubscriptReference](q.AllExpressions())
}

// ConditionColumns returns the distinct columns referenced by the WHERE
// condition.
func (q *Query) ConditionColumns() []expr.Column {
	if q.condition == nil {
		return nil
	}
	return collect[expr.Column](expr.All(q.condition))
}

func collect[T expr.Expression](seq iter.Seq[expr.Expression]) []T {
	seen := make(map[string]struct{})
	var out []T
	for e := range seq {
		t, ok := e.(T)
		if !ok {
			continue
		}
		key := expr.Key(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
