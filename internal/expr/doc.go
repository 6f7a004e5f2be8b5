// Package expr provides the expression tree used by logical and physical
// queries.
//
// ARCHITECTURE:
//
// Every fragment of a query (a selected column, a WHERE condition, an ORDER
// BY key) is an Expression. Expressions are persistent values: once built
// they are never mutated, and every rewrite produces a new tree that may
// share unchanged subtrees with the old one.
//
//	Query ─┬─ selected columns ─→ Expression
//	       ├─ condition        ─→ Expression
//	       └─ order by         ─→ Expression
//
// SEALED INTERFACE:
//
// Expression is a sealed interface using the marker method pattern. Only the
// variants declared in this package implement it:
//
//	Column               t.col AS alias
//	Literal              'value'
//	FunctionCall         f(a, b)
//	CurriedFunctionCall  f(a)(b)
//	SubscriptReference   col[key]
//	Lambda               (x, y) -> body
//	Argument             x (a lambda parameter)
//
// Backends dispatch exhaustively, either with a type switch or through
// Accept with a Visitor, which has one method per variant:
//
//	sql := expr.Accept(e, formatter)
//
// TRAVERSAL:
//
// All returns a lazy iter.Seq that yields a node followed by the depth-first
// sequence of each child in argument order. The sequence can be ranged over
// any number of times and stops as soon as the consumer breaks.
//
// TRANSFORMATION:
//
// Transform rebuilds a tree bottom-up: children first, then the replacement
// function on the rebuilt node. Transform(e, identity) is structurally equal
// to e.
//
// ALIASES:
//
// Alias is the empty string when absent. Function and column names are
// compared case-sensitively, matching how the storage engine resolves them.
package expr
