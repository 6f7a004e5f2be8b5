package split

import (
	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
)

// RangeOf returns the [lower, upper) interval that the first-level
// conditions of q impose on column through >= and <. When a bound appears
// more than once the tightest one wins. ok is false unless both bounds are
// present.
func RangeOf(q *query.Query, column string) (lower, upper ir.IRDateTime, ok bool) {
	var hasLower, hasUpper bool
	for _, cond := range expr.FirstLevelAnd(q.Condition()) {
		if rhs, match := expr.ColumnCondition(cond, column, expr.FnGreaterOrEquals); match {
			if dt, isTime := datetimeOf(rhs); isTime {
				if !hasLower || dt.Time().After(lower.Time()) {
					lower = dt
				}
				hasLower = true
			}
		}
		if rhs, match := expr.ColumnCondition(cond, column, expr.FnLess); match {
			if dt, isTime := datetimeOf(rhs); isTime {
				if !hasUpper || dt.Time().Before(upper.Time()) {
					upper = dt
				}
				hasUpper = true
			}
		}
	}
	return lower, upper, hasLower && hasUpper
}

func datetimeOf(e expr.Expression) (ir.IRDateTime, bool) {
	v, ok := expr.LiteralValue(e)
	if !ok {
		return ir.IRDateTime{}, false
	}
	return ir.AsDateTime(v)
}

// ReplaceCondition rewrites the first-level conjuncts fn(column, x) of the
// condition of q into fn(column, rhs). Conditions nested under or, not or any
// other call are left alone. It reports whether anything was replaced.
func ReplaceCondition(q *query.Query, column, fn string, rhs expr.Expression) bool {
	conds := expr.FirstLevelAnd(q.Condition())
	replaced := false
	for i, cond := range conds {
		if _, match := expr.ColumnCondition(cond, column, fn); !match {
			continue
		}
		call, _ := expr.IsCondition(cond, fn)
		call.Args = []expr.Expression{call.Args[0], rhs}
		conds[i] = call
		replaced = true
	}
	if replaced {
		q.SetCondition(expr.CombineAnd(conds...))
	}
	return replaced
}

// SetRange replaces the >= and < bounds on column with [lower, upper).
// A bound that is missing is added as a new top-level condition.
func SetRange(q *query.Query, column string, lower, upper ir.IRDateTime) {
	bounds := []struct {
		fn    string
		value ir.IRDateTime
	}{
		{expr.FnGreaterOrEquals, lower},
		{expr.FnLess, upper},
	}
	for _, b := range bounds {
		lit := expr.DateTimeLiteral(b.value)
		if !ReplaceCondition(q, column, b.fn, lit) {
			q.AddCondition(expr.BinaryCondition(b.fn, expr.Column{Name: column}, lit))
		}
	}
}
