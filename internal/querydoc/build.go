package querydoc

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
)

// BuildError reports a document entry that cannot be turned into a query.
type BuildError struct {
	// Field is the path of the offending entry, e.g. "conditions[2][1]".
	Field   string
	Message string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func errorf(field, format string, args ...any) *BuildError {
	return &BuildError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// timed is implemented by data sources with a time column, such as
// catalog storages.
type timed interface {
	TimeColumn() string
}

// Operators accepted in condition triples.
var operators = map[string]string{
	"=":    expr.FnEquals,
	"!=":   expr.FnNotEquals,
	"<":    expr.FnLess,
	">":    expr.FnGreater,
	"<=":   expr.FnLessOrEquals,
	">=":   expr.FnGreaterOrEquals,
	"LIKE": expr.FnLike,
}

// Build turns doc into a logical query over source.
//
// Bare strings name columns; strings wrapped in single quotes, numbers and
// booleans are literals. Condition values compared against the source's
// time column become toDateTime calls. Group by columns that are not
// selected are appended to the select list.
func Build(doc *Document, source query.DataSource) (*query.Query, error) {
	b := builder{}
	if t, ok := source.(timed); ok {
		b.timeColumn = t.TimeColumn()
	}

	selected, err := b.selected(doc)
	if err != nil {
		return nil, err
	}
	condition, err := b.conditions("conditions", doc.Conditions)
	if err != nil {
		return nil, err
	}
	having, err := b.conditions("having", doc.Having)
	if err != nil {
		return nil, err
	}

	var groupBy []expr.Expression
	for i, name := range doc.GroupBy {
		if name == "" {
			return nil, errorf(fmt.Sprintf("groupby[%d]", i), "empty column name")
		}
		groupBy = append(groupBy, expr.Column{Name: name})
		if !hasSelected(selected, name) {
			selected = append(selected, query.SelectedExpression{Name: name, Expression: expr.Column{Name: name}})
		}
	}

	orderBy, err := orderKeys(doc.OrderBy)
	if err != nil {
		return nil, err
	}

	opts := []query.Option{
		query.WithSelected(selected...),
		query.WithCondition(condition),
		query.WithGroupBy(groupBy...),
		query.WithOrderBy(orderBy...),
	}
	q := query.New(source, opts...)
	q.SetHaving(having)
	q.SetTotals(doc.Totals)

	if doc.Limit != nil {
		if err := q.SetLimit(*doc.Limit); err != nil {
			return nil, errorf("limit", "%v", err)
		}
	}
	if err := q.SetOffset(doc.Offset); err != nil {
		return nil, errorf("offset", "%v", err)
	}
	if doc.LimitBy != nil {
		lb, err := b.limitBy(doc.LimitBy)
		if err != nil {
			return nil, err
		}
		if err := q.SetLimitBy(lb); err != nil {
			return nil, errorf("limitby", "%v", err)
		}
	}
	if doc.Sample != nil {
		q.SetSample(*doc.Sample)
	}
	if doc.Granularity != nil {
		q.SetGranularity(*doc.Granularity)
	}
	return q, nil
}

type builder struct {
	timeColumn string
}

func (b builder) selected(doc *Document) ([]query.SelectedExpression, error) {
	var out []query.SelectedExpression
	for i, entry := range doc.SelectedColumns {
		field := fmt.Sprintf("selected_columns[%d]", i)
		e, err := b.expression(field, entry)
		if err != nil {
			return nil, err
		}
		name := expr.AliasOf(e)
		if c, ok := e.(expr.Column); ok {
			name = c.Name
		}
		out = append(out, query.SelectedExpression{Name: name, Expression: e})
	}

	for i, agg := range doc.Aggregations {
		field := fmt.Sprintf("aggregations[%d]", i)
		e, err := b.aggregation(field, agg)
		if err != nil {
			return nil, err
		}
		out = append(out, query.SelectedExpression{Name: expr.AliasOf(e), Expression: e})
	}
	return out, nil
}

func hasSelected(cols []query.SelectedExpression, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}
	return false
}

// aggregation parses [function, column, alias].
func (b builder) aggregation(field string, agg []any) (expr.Expression, error) {
	if len(agg) != 3 {
		return nil, errorf(field, "want [function, column, alias], got %d elements", len(agg))
	}
	fn, ok := agg[0].(string)
	if !ok || fn == "" {
		return nil, errorf(field+"[0]", "function name must be a string")
	}
	fn = strings.TrimSuffix(fn, "()")
	alias, ok := agg[2].(string)
	if !ok {
		return nil, errorf(field+"[2]", "alias must be a string")
	}

	var args []expr.Expression
	switch arg := agg[1].(type) {
	case nil:
	case string:
		if arg != "" {
			args = append(args, expr.Column{Name: arg})
		}
	case []any:
		for i, a := range arg {
			e, err := b.expression(fmt.Sprintf("%s[1][%d]", field, i), a)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
	default:
		return nil, errorf(field+"[1]", "unsupported argument %v", arg)
	}
	return expr.FunctionCall{Alias: alias, Name: fn, Args: args}, nil
}

// expression parses a column name, a quoted string, a scalar or a
// [function, [args], alias?] call.
func (b builder) expression(field string, v any) (expr.Expression, error) {
	switch val := v.(type) {
	case string:
		if len(val) >= 2 && strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			return expr.Literal{Value: ir.IRString(val[1 : len(val)-1])}, nil
		}
		if val == "" {
			return nil, errorf(field, "empty column name")
		}
		return expr.Column{Name: val}, nil
	case []any:
		return b.call(field, val)
	default:
		lit, err := literal(field, v)
		if err != nil {
			return nil, err
		}
		return lit, nil
	}
}

func (b builder) call(field string, v []any) (expr.Expression, error) {
	if len(v) < 2 || len(v) > 3 {
		return nil, errorf(field, "want [function, [args], alias], got %d elements", len(v))
	}
	name, ok := v[0].(string)
	if !ok || name == "" {
		return nil, errorf(field+"[0]", "function name must be a string")
	}
	rawArgs, ok := v[1].([]any)
	if !ok && v[1] != nil {
		return nil, errorf(field+"[1]", "arguments must be a list")
	}
	fc := expr.FunctionCall{Name: name}
	for i, a := range rawArgs {
		e, err := b.expression(fmt.Sprintf("%s[1][%d]", field, i), a)
		if err != nil {
			return nil, err
		}
		fc.Args = append(fc.Args, e)
	}
	if len(v) == 3 {
		alias, ok := v[2].(string)
		if !ok {
			return nil, errorf(field+"[2]", "alias must be a string")
		}
		fc.Alias = alias
	}
	return fc, nil
}

func literal(field string, v any) (expr.Literal, error) {
	switch v.(type) {
	case []any, map[string]any:
		return expr.Literal{}, errorf(field, "expected a scalar, got %T", v)
	}
	value, err := ir.FromNative(v)
	if err != nil {
		return expr.Literal{}, errorf(field, "%v", err)
	}
	return expr.Literal{Value: value}, nil
}

// conditions ANDs the top-level entries. nil entries yield a nil
// condition.
func (b builder) conditions(field string, entries []any) (expr.Expression, error) {
	conds := make([]expr.Expression, 0, len(entries))
	for i, entry := range entries {
		c, err := b.condition(fmt.Sprintf("%s[%d]", field, i), entry)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return expr.CombineAnd(conds...), nil
}

// condition parses a [lhs, op, rhs] triple or an OR group of triples.
func (b builder) condition(field string, entry any) (expr.Expression, error) {
	triple, ok := entry.([]any)
	if !ok || len(triple) == 0 {
		return nil, errorf(field, "condition must be a list")
	}
	if isGroup(triple) {
		ors := make([]expr.Expression, 0, len(triple))
		for i, inner := range triple {
			c, err := b.condition(fmt.Sprintf("%s[%d]", field, i), inner)
			if err != nil {
				return nil, err
			}
			ors = append(ors, c)
		}
		return expr.CombineOr(ors...), nil
	}
	if len(triple) != 3 {
		return nil, errorf(field, "want [lhs, op, rhs], got %d elements", len(triple))
	}

	lhs, err := b.expression(field+"[0]", triple[0])
	if err != nil {
		return nil, err
	}
	op, ok := triple[1].(string)
	if !ok {
		return nil, errorf(field+"[1]", "operator must be a string")
	}
	op = strings.ToUpper(strings.TrimSpace(op))

	switch op {
	case "IS NULL":
		return expr.FunctionCall{Name: expr.FnIsNull, Args: []expr.Expression{lhs}}, nil
	case "IS NOT NULL":
		return not(expr.FunctionCall{Name: expr.FnIsNull, Args: []expr.Expression{lhs}}), nil
	case "IN", "NOT IN":
		values, ok := triple[2].([]any)
		if !ok {
			return nil, errorf(field+"[2]", "%s needs a list", op)
		}
		args := make([]expr.Expression, len(values))
		for i, v := range values {
			if args[i], err = b.value(fmt.Sprintf("%s[2][%d]", field, i), lhs, v); err != nil {
				return nil, err
			}
		}
		if op == "IN" {
			return expr.InCondition(lhs, args...), nil
		}
		return expr.BinaryCondition(expr.FnNotIn, lhs, expr.Tuple(args...)), nil
	case "NOT LIKE":
		rhs, err := b.value(field+"[2]", lhs, triple[2])
		if err != nil {
			return nil, err
		}
		return not(expr.BinaryCondition(expr.FnLike, lhs, rhs)), nil
	}

	fn, ok := operators[op]
	if !ok {
		return nil, errorf(field+"[1]", "unknown operator %q", op)
	}
	rhs, err := b.value(field+"[2]", lhs, triple[2])
	if err != nil {
		return nil, err
	}
	return expr.BinaryCondition(fn, lhs, rhs), nil
}

// isGroup reports whether entry is a list of conditions rather than a
// single triple.
func isGroup(entry []any) bool {
	if len(entry) == 3 {
		if _, isOp := entry[1].(string); isOp {
			return false
		}
	}
	for _, e := range entry {
		if _, ok := e.([]any); !ok {
			return false
		}
	}
	return true
}

func not(e expr.Expression) expr.Expression {
	return expr.FunctionCall{Name: expr.FnNot, Args: []expr.Expression{e}}
}

// value converts the right-hand side of a condition. Values compared with
// the time column must be datetimes.
func (b builder) value(field string, lhs expr.Expression, v any) (expr.Expression, error) {
	if c, ok := lhs.(expr.Column); ok && b.timeColumn != "" && c.Name == b.timeColumn {
		var dt ir.IRDateTime
		switch val := v.(type) {
		case string:
			parsed, err := ir.ParseDateTime(val)
			if err != nil {
				return nil, errorf(field, "%v", err)
			}
			dt = parsed
		case time.Time:
			dt = ir.NewDateTime(val)
		default:
			return nil, errorf(field, "%s needs a datetime, got %v", c.Name, v)
		}
		return expr.FunctionCall{
			Name: expr.FnToDateTime,
			Args: []expr.Expression{expr.Literal{Value: ir.IRString(dt.String())}},
		}, nil
	}
	lit, err := literal(field, v)
	if err != nil {
		return nil, err
	}
	return lit, nil
}

func orderKeys(entries []string) ([]query.OrderBy, error) {
	out := make([]query.OrderBy, 0, len(entries))
	for i, entry := range entries {
		dir := query.Ascending
		name := entry
		if strings.HasPrefix(entry, "-") {
			dir = query.Descending
			name = entry[1:]
		}
		if name == "" {
			return nil, errorf(fmt.Sprintf("orderby[%d]", i), "empty column name")
		}
		out = append(out, query.OrderBy{Direction: dir, Expression: expr.Column{Name: name}})
	}
	return out, nil
}

func (b builder) limitBy(v []any) (*query.LimitBy, error) {
	if len(v) != 2 {
		return nil, errorf("limitby", "want [n, column], got %d elements", len(v))
	}
	n, ok := v[0].(int)
	if !ok {
		return nil, errorf("limitby[0]", "limit must be an integer")
	}
	e, err := b.expression("limitby[1]", v[1])
	if err != nil {
		return nil, err
	}
	return &query.LimitBy{Limit: n, Expression: e}, nil
}
