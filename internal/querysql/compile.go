package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
)

// ErrUnsupported is wrapped by every error for a clause or expression the
// SQLite dialect cannot express.
var ErrUnsupported = errors.New("unsupported by sqlite dialect")

// SQLCompiler compiles logical queries to parameterized SQL for SQLite.
//
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts q to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// Clause order is SELECT, WHERE, GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET.
// ARRAY JOIN, PREWHERE, LIMIT BY, SAMPLE, FINAL and WITH TOTALS are
// rejected with ErrUnsupported.
func (c *SQLCompiler) Compile(q *query.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := rejectUnsupported(q); err != nil {
		return "", nil, err
	}
	source, err := q.DataSource()
	if err != nil {
		return "", nil, err
	}
	table := source.Name()
	if l, ok := source.(local); ok && l.LocalTable() != "" {
		table = l.LocalTable()
	}

	v := &sqliteVisitor{}
	var b strings.Builder

	b.WriteString("SELECT ")
	cols := q.SelectedColumns()
	if len(cols) == 0 {
		b.WriteString("*")
	}
	for i, s := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.render(s.Expression))
		if s.Name != "" {
			b.WriteString(" AS ")
			b.WriteString(quoteIdentifier(s.Name))
		}
	}

	b.WriteString(" FROM ")
	b.WriteString(quoteIdentifier(table))

	if cond := q.Condition(); cond != nil {
		b.WriteString(" WHERE ")
		b.WriteString(v.render(cond))
	}
	if groupBy := q.GroupBy(); len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(v.list(groupBy))
	}
	if having := q.Having(); having != nil {
		b.WriteString(" HAVING ")
		b.WriteString(v.render(having))
	}
	if orderBy := q.OrderBy(); len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range orderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(v.render(o.Expression))
			b.WriteString(" ")
			b.WriteString(string(o.Direction))
		}
	}

	limit, hasLimit := q.Limit()
	offset := q.Offset()
	switch {
	case hasLimit:
		fmt.Fprintf(&b, " LIMIT %d", limit)
		if offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", offset)
		}
	case offset > 0:
		// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
		fmt.Fprintf(&b, " LIMIT -1 OFFSET %d", offset)
	}

	if v.err != nil {
		return "", nil, v.err
	}
	return b.String(), v.params, nil
}

func rejectUnsupported(q *query.Query) error {
	switch {
	case q.ArrayJoin() != nil:
		return fmt.Errorf("ARRAY JOIN: %w", ErrUnsupported)
	case q.Prewhere() != nil:
		return fmt.Errorf("PREWHERE: %w", ErrUnsupported)
	case q.LimitBy() != nil:
		return fmt.Errorf("LIMIT BY: %w", ErrUnsupported)
	case q.Final():
		return fmt.Errorf("FINAL: %w", ErrUnsupported)
	case q.Totals():
		return fmt.Errorf("WITH TOTALS: %w", ErrUnsupported)
	}
	if _, ok := q.Sample(); ok {
		return fmt.Errorf("SAMPLE: %w", ErrUnsupported)
	}
	return nil
}

// quoteIdentifier brackets an identifier. SQLite reads an unknown
// double-quoted name as a string literal, a bracketed one never. Nested
// column names such as tags.key are a single identifier.
func quoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "") + "]"
}

// infix maps comparison functions to SQLite operators.
var infix = map[string]string{
	expr.FnEquals:          "=",
	expr.FnNotEquals:       "!=",
	expr.FnLess:            "<",
	expr.FnGreater:         ">",
	expr.FnLessOrEquals:    "<=",
	expr.FnGreaterOrEquals: ">=",
	expr.FnLike:            "LIKE",
}

// sqliteVisitor renders expressions with ? placeholders, collecting the
// bound values in render order. The first error sticks.
type sqliteVisitor struct {
	params []any
	err    error
}

var _ expr.Visitor[string] = (*sqliteVisitor)(nil)

func (v *sqliteVisitor) render(e expr.Expression) string {
	return expr.Accept[string](e, v)
}

func (v *sqliteVisitor) list(args []expr.Expression) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = v.render(a)
	}
	return strings.Join(parts, ", ")
}

func (v *sqliteVisitor) fail(format string, args ...any) string {
	if v.err == nil {
		v.err = fmt.Errorf(format+": %w", append(args, ErrUnsupported)...)
	}
	return "NULL"
}

// Aliases are dropped outside the select list. SQLite resolves references
// to select list names in WHERE and ORDER BY on its own.
func (v *sqliteVisitor) VisitColumn(c expr.Column) string {
	if c.Table != "" {
		return quoteIdentifier(c.Table) + "." + quoteIdentifier(c.Name)
	}
	return quoteIdentifier(c.Name)
}

func (v *sqliteVisitor) VisitLiteral(l expr.Literal) string {
	param, err := irValueToParam(l.Value)
	if err != nil {
		if v.err == nil {
			v.err = fmt.Errorf("convert value: %w", err)
		}
		return "NULL"
	}
	v.params = append(v.params, param)
	return "?"
}

func (v *sqliteVisitor) VisitFunctionCall(fc expr.FunctionCall) string {
	if op, ok := infix[fc.Name]; ok && len(fc.Args) == 2 {
		return "(" + v.render(fc.Args[0]) + " " + op + " " + v.render(fc.Args[1]) + ")"
	}

	switch fc.Name {
	case expr.FnAnd, expr.FnOr:
		parts := make([]string, len(fc.Args))
		for i, a := range fc.Args {
			parts[i] = v.render(a)
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(fc.Name)+" ") + ")"
	case expr.FnNot:
		if len(fc.Args) == 1 {
			return "(NOT " + v.render(fc.Args[0]) + ")"
		}
	case expr.FnIsNull:
		if len(fc.Args) == 1 {
			return "(" + v.render(fc.Args[0]) + " IS NULL)"
		}
	case expr.FnIn, expr.FnNotIn:
		if len(fc.Args) == 2 {
			return v.membership(fc)
		}
	case expr.FnTuple:
		return "(" + v.list(fc.Args) + ")"
	case expr.FnToDateTime:
		// Timestamps are stored as DateTimeLayout text.
		if len(fc.Args) == 1 {
			return v.render(fc.Args[0])
		}
	case "count":
		if len(fc.Args) == 0 {
			return "count(*)"
		}
	}
	return fc.Name + "(" + v.list(fc.Args) + ")"
}

// membership renders in/notIn. A tuple on the left needs a VALUES list on
// the right, since SQLite only compares row values against a subquery.
func (v *sqliteVisitor) membership(fc expr.FunctionCall) string {
	op := " IN "
	if fc.Name == expr.FnNotIn {
		op = " NOT IN "
	}
	lhs := fc.Args[0]
	rhs, ok := fc.Args[1].(expr.FunctionCall)
	if !ok || rhs.Name != expr.FnTuple {
		return "(" + v.render(lhs) + op + "(" + v.render(fc.Args[1]) + "))"
	}
	if len(rhs.Args) == 0 {
		if fc.Name == expr.FnIn {
			return "(1 = 0)"
		}
		return "(1 = 1)"
	}
	if l, isTuple := lhs.(expr.FunctionCall); isTuple && l.Name == expr.FnTuple {
		rows := make([]string, len(rhs.Args))
		for i, r := range rhs.Args {
			rows[i] = v.render(r)
		}
		return "(" + v.render(lhs) + op + "(VALUES " + strings.Join(rows, ", ") + "))"
	}
	return "(" + v.render(lhs) + op + "(" + v.list(rhs.Args) + "))"
}

func (v *sqliteVisitor) VisitCurriedFunctionCall(cf expr.CurriedFunctionCall) string {
	return v.fail("curried function %s", cf.Internal.Name)
}

func (v *sqliteVisitor) VisitSubscriptReference(s expr.SubscriptReference) string {
	return v.fail("subscript on %s", s.Column.Name)
}

func (v *sqliteVisitor) VisitLambda(expr.Lambda) string {
	return v.fail("lambda")
}

func (v *sqliteVisitor) VisitArgument(a expr.Argument) string {
	return v.fail("lambda argument %s", a.Name)
}

// irValueToParam converts an ir.IRValue to a Go native type for SQL parameter.
// Datetimes bind as DateTimeLayout strings. Arrays and objects are not
// directly supported as SQL parameters.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRFloat:
		return float64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRDateTime:
		return val.String(), nil
	case nil, ir.IRNull:
		return nil, nil
	case ir.IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}

// ParamsIR converts bound parameters back to IR values for fingerprinting.
func ParamsIR(params []any) ir.IRArray {
	out := make(ir.IRArray, len(params))
	for i, p := range params {
		v, err := ir.FromNative(p)
		if err != nil {
			v = ir.IRString(fmt.Sprint(p))
		}
		out[i] = v
	}
	return out
}
