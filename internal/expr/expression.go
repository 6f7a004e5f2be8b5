package expr

import (
	"iter"

	"github.com/roach88/splitq/internal/ir"
)

// Expression is a node of the expression tree.
//
// This is a sealed interface - only types in this package implement it.
type Expression interface {
	exprNode() // Marker method - seals interface to this package
}

// Column references a column of the data source, optionally qualified by a
// table name.
type Column struct {
	Alias string
	Table string
	Name  string
}

func (Column) exprNode() {}

// QualifiedName returns "table.name", or "name" when the column carries no
// table.
func (c Column) QualifiedName() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// Literal is a constant value.
type Literal struct {
	Alias string
	Value ir.IRValue
}

func (Literal) exprNode() {}

// FunctionCall applies a named function to its arguments.
type FunctionCall struct {
	Alias string
	Name  string
	Args  []Expression
}

func (FunctionCall) exprNode() {}

// CurriedFunctionCall applies the function returned by Internal to Args,
// e.g. quantiles(0.5, 0.9)(duration).
type CurriedFunctionCall struct {
	Alias    string
	Internal FunctionCall
	Args     []Expression
}

func (CurriedFunctionCall) exprNode() {}

// SubscriptReference accesses a key of a map-like column, e.g. tags[env].
type SubscriptReference struct {
	Alias  string
	Column Column
	Key    Literal
}

func (SubscriptReference) exprNode() {}

// Lambda is an anonymous function, e.g. x -> equals(x, 1).
type Lambda struct {
	Alias      string
	Parameters []string
	Body       Expression
}

func (Lambda) exprNode() {}

// Argument references a lambda parameter inside the lambda body.
type Argument struct {
	Alias string
	Name  string
}

func (Argument) exprNode() {}

// AliasOf returns the alias of e, or "" when it has none.
func AliasOf(e Expression) string {
	switch n := e.(type) {
	case Column:
		return n.Alias
	case Literal:
		return n.Alias
	case FunctionCall:
		return n.Alias
	case CurriedFunctionCall:
		return n.Alias
	case SubscriptReference:
		return n.Alias
	case Lambda:
		return n.Alias
	case Argument:
		return n.Alias
	default:
		return ""
	}
}

// WithAlias returns a copy of e carrying alias.
func WithAlias(e Expression, alias string) Expression {
	switch n := e.(type) {
	case Column:
		n.Alias = alias
		return n
	case Literal:
		n.Alias = alias
		return n
	case FunctionCall:
		n.Alias = alias
		return n
	case CurriedFunctionCall:
		n.Alias = alias
		return n
	case SubscriptReference:
		n.Alias = alias
		return n
	case Lambda:
		n.Alias = alias
		return n
	case Argument:
		n.Alias = alias
		return n
	default:
		return e
	}
}

// Children returns the direct sub-expressions of e in argument order.
// The returned slice is freshly allocated.
func Children(e Expression) []Expression {
	switch n := e.(type) {
	case FunctionCall:
		return append([]Expression(nil), n.Args...)
	case CurriedFunctionCall:
		out := make([]Expression, 0, len(n.Args)+1)
		out = append(out, n.Internal)
		return append(out, n.Args...)
	case SubscriptReference:
		return []Expression{n.Column, n.Key}
	case Lambda:
		if n.Body == nil {
			return nil
		}
		return []Expression{n.Body}
	default:
		return nil
	}
}

// All returns the node itself followed by the depth-first sequence of each
// child. The sequence is lazy and may be iterated repeatedly.
func All(e Expression) iter.Seq[Expression] {
	return func(yield func(Expression) bool) {
		walk(e, yield)
	}
}

func walk(e Expression, yield func(Expression) bool) bool {
	if e == nil {
		return true
	}
	if !yield(e) {
		return false
	}
	for _, child := range Children(e) {
		if !walk(child, yield) {
			return false
		}
	}
	return true
}

// Transform rebuilds e bottom-up. Children are transformed first, a new node
// is built from them, and f is applied to the new node.
//
// Nodes whose fields are typed more narrowly than Expression (the internal
// function of a curried call, the column and key of a subscript) keep the
// rebuilt child when f replaces it with a different variant.
func Transform(e Expression, f func(Expression) Expression) Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case FunctionCall:
		n.Args = transformAll(n.Args, f)
		return f(n)
	case CurriedFunctionCall:
		n.Internal = transformFunction(n.Internal, f)
		n.Args = transformAll(n.Args, f)
		return f(n)
	case SubscriptReference:
		n.Column = replaceLeaf(n.Column, f)
		n.Key = replaceLeaf(n.Key, f)
		return f(n)
	case Lambda:
		n.Parameters = append([]string(nil), n.Parameters...)
		n.Body = Transform(n.Body, f)
		return f(n)
	default:
		return f(e)
	}
}

func transformAll(args []Expression, f func(Expression) Expression) []Expression {
	if args == nil {
		return nil
	}
	out := make([]Expression, len(args))
	for i, a := range args {
		out[i] = Transform(a, f)
	}
	return out
}

// transformFunction transforms a curried call's internal function. When f
// turns it into another variant the rebuilt function is kept.
func transformFunction(fc FunctionCall, f func(Expression) Expression) FunctionCall {
	fc.Args = transformAll(fc.Args, f)
	if out, ok := f(fc).(FunctionCall); ok {
		return out
	}
	return fc
}

// replaceLeaf applies f to a leaf child and keeps the original when f
// changes its variant.
func replaceLeaf[T interface {
	Column | Literal
	Expression
}](leaf T, f func(Expression) Expression) T {
	if out, ok := f(leaf).(T); ok {
		return out
	}
	return leaf
}
