package expr

import "fmt"

// Visitor has one method per expression variant. Accept dispatches to the
// matching method, so adding a variant breaks every visitor at compile time.
type Visitor[T any] interface {
	VisitColumn(Column) T
	VisitLiteral(Literal) T
	VisitFunctionCall(FunctionCall) T
	VisitCurriedFunctionCall(CurriedFunctionCall) T
	VisitSubscriptReference(SubscriptReference) T
	VisitLambda(Lambda) T
	VisitArgument(Argument) T
}

// Accept dispatches e to the visitor method for its variant.
// Visitors recurse by calling Accept on the children they care about.
func Accept[T any](e Expression, v Visitor[T]) T {
	switch n := e.(type) {
	case Column:
		return v.VisitColumn(n)
	case Literal:
		return v.VisitLiteral(n)
	case FunctionCall:
		return v.VisitFunctionCall(n)
	case CurriedFunctionCall:
		return v.VisitCurriedFunctionCall(n)
	case SubscriptReference:
		return v.VisitSubscriptReference(n)
	case Lambda:
		return v.VisitLambda(n)
	case Argument:
		return v.VisitArgument(n)
	default:
		// Impossible for a sealed interface; nil is the only other value.
		panic(fmt.Sprintf("expr: cannot visit %T", e))
	}
}
