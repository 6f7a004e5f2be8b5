package expr

import (
	"strings"

	"github.com/roach88/splitq/internal/ir"
)

// Equal reports whether a and b are structurally identical, aliases
// included.
func Equal(a, b Expression) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Column:
		y, ok := b.(Column)
		return ok && x == y
	case Literal:
		y, ok := b.(Literal)
		return ok && x.Alias == y.Alias && ir.Equal(x.Value, y.Value)
	case FunctionCall:
		y, ok := b.(FunctionCall)
		return ok && x.Alias == y.Alias && x.Name == y.Name && equalAll(x.Args, y.Args)
	case CurriedFunctionCall:
		y, ok := b.(CurriedFunctionCall)
		return ok && x.Alias == y.Alias && Equal(x.Internal, y.Internal) && equalAll(x.Args, y.Args)
	case SubscriptReference:
		y, ok := b.(SubscriptReference)
		return ok && x.Alias == y.Alias && x.Column == y.Column && Equal(x.Key, y.Key)
	case Lambda:
		y, ok := b.(Lambda)
		if !ok || x.Alias != y.Alias || len(x.Parameters) != len(y.Parameters) {
			return false
		}
		for i := range x.Parameters {
			if x.Parameters[i] != y.Parameters[i] {
				return false
			}
		}
		return Equal(x.Body, y.Body)
	case Argument:
		y, ok := b.(Argument)
		return ok && x == y
	default:
		return false
	}
}

func equalAll(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Key returns a string that is equal for two expressions iff they are
// structurally equal. Used to de-duplicate expressions in sets.
func Key(e Expression) string {
	var b strings.Builder
	writeKey(&b, e)
	return b.String()
}

func writeKey(b *strings.Builder, e Expression) {
	switch n := e.(type) {
	case nil:
		b.WriteString("<nil>")
		return
	case Column:
		b.WriteString("col:")
		b.WriteString(n.QualifiedName())
	case Literal:
		b.WriteString("lit:")
		b.WriteString(ir.Format(n.Value))
	case FunctionCall:
		b.WriteString("fn:")
		b.WriteString(n.Name)
		writeArgs(b, n.Args)
	case CurriedFunctionCall:
		b.WriteString("curried:")
		writeKey(b, n.Internal)
		writeArgs(b, n.Args)
	case SubscriptReference:
		b.WriteString("sub:")
		writeKey(b, n.Column)
		b.WriteByte('[')
		writeKey(b, n.Key)
		b.WriteByte(']')
	case Lambda:
		b.WriteString("lambda(")
		b.WriteString(strings.Join(n.Parameters, ","))
		b.WriteString(")->")
		writeKey(b, n.Body)
	case Argument:
		b.WriteString("arg:")
		b.WriteString(n.Name)
	}
	if alias := AliasOf(e); alias != "" {
		b.WriteString(" AS ")
		b.WriteString(alias)
	}
}

func writeArgs(b *strings.Builder, args []Expression) {
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(b, a)
	}
	b.WriteByte(')')
}
