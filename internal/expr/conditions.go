package expr

import "github.com/roach88/splitq/internal/ir"

// Function names used to build and match conditions.
const (
	FnEquals          = "equals"
	FnNotEquals       = "notEquals"
	FnLess            = "less"
	FnGreater         = "greater"
	FnLessOrEquals    = "lessOrEquals"
	FnGreaterOrEquals = "greaterOrEquals"
	FnIn              = "in"
	FnNotIn           = "notIn"
	FnLike            = "like"
	FnIsNull          = "isNull"
	FnAnd             = "and"
	FnOr              = "or"
	FnNot             = "not"
	FnTuple           = "tuple"
	FnToDateTime      = "toDateTime"
)

// BinaryCondition builds fn(lhs, rhs).
func BinaryCondition(fn string, lhs, rhs Expression) FunctionCall {
	return FunctionCall{Name: fn, Args: []Expression{lhs, rhs}}
}

// Tuple builds tuple(args...).
func Tuple(args ...Expression) FunctionCall {
	return FunctionCall{Name: FnTuple, Args: append([]Expression(nil), args...)}
}

// LiteralsTuple builds a tuple of literals, optionally aliased.
func LiteralsTuple(alias string, values ...ir.IRValue) FunctionCall {
	args := make([]Expression, len(values))
	for i, v := range values {
		args[i] = Literal{Value: v}
	}
	return FunctionCall{Alias: alias, Name: FnTuple, Args: args}
}

// InCondition builds in(lhs, tuple(values...)).
func InCondition(lhs Expression, values ...Expression) FunctionCall {
	return BinaryCondition(FnIn, lhs, Tuple(values...))
}

// CombineAnd joins conditions with right-nested binary and:
// and(c1, and(c2, c3)). It returns nil for no conditions and the condition
// itself for one.
func CombineAnd(conds ...Expression) Expression {
	return combine(FnAnd, conds)
}

// CombineOr is CombineAnd for or.
func CombineOr(conds ...Expression) Expression {
	return combine(FnOr, conds)
}

func combine(fn string, conds []Expression) Expression {
	nonNil := make([]Expression, 0, len(conds))
	for _, c := range conds {
		if c != nil {
			nonNil = append(nonNil, c)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	out := nonNil[len(nonNil)-1]
	for i := len(nonNil) - 2; i >= 0; i-- {
		out = BinaryCondition(fn, nonNil[i], out)
	}
	return out
}

// FirstLevelAnd flattens nested and calls into the list of conditions that
// must all hold. A nil condition yields an empty list.
func FirstLevelAnd(cond Expression) []Expression {
	return firstLevel(FnAnd, cond)
}

// FirstLevelOr is FirstLevelAnd for or.
func FirstLevelOr(cond Expression) []Expression {
	return firstLevel(FnOr, cond)
}

func firstLevel(fn string, cond Expression) []Expression {
	if cond == nil {
		return nil
	}
	call, ok := cond.(FunctionCall)
	if !ok || call.Name != fn {
		return []Expression{cond}
	}
	var out []Expression
	for _, arg := range call.Args {
		out = append(out, firstLevel(fn, arg)...)
	}
	return out
}

// IsCondition reports whether e is a call to one of fns with two
// arguments.
func IsCondition(e Expression, fns ...string) (FunctionCall, bool) {
	call, ok := e.(FunctionCall)
	if !ok || len(call.Args) != 2 {
		return FunctionCall{}, false
	}
	for _, fn := range fns {
		if call.Name == fn {
			return call, true
		}
	}
	return FunctionCall{}, false
}

// ColumnCondition matches fn(column, rhs) where the left side is an
// unqualified or qualified column called name. It returns the right side.
func ColumnCondition(e Expression, name string, fns ...string) (Expression, bool) {
	call, ok := IsCondition(e, fns...)
	if !ok {
		return nil, false
	}
	col, ok := call.Args[0].(Column)
	if !ok || col.Name != name {
		return nil, false
	}
	return call.Args[1], true
}

// DateTimeLiteral builds a datetime literal.
func DateTimeLiteral(dt ir.IRDateTime) Literal {
	return Literal{Value: dt}
}

// LiteralValue unwraps a literal, or a toDateTime call of a literal, to its
// value.
func LiteralValue(e Expression) (ir.IRValue, bool) {
	switch n := e.(type) {
	case Literal:
		return n.Value, true
	case FunctionCall:
		if n.Name == FnToDateTime && len(n.Args) >= 1 {
			if lit, ok := n.Args[0].(Literal); ok {
				if dt, ok := ir.AsDateTime(lit.Value); ok {
					return dt, true
				}
			}
		}
	}
	return nil, false
}
