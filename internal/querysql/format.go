package querysql

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
)

// Placeholders written by the anonymized formatter in place of literals.
const (
	AnonymousString = "$S"
	AnonymousNumber = "-1337"
)

var safeIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// escapeIdentifier leaves plain identifiers alone and backquotes the rest.
func escapeIdentifier(name string) string {
	if safeIdentifier.MatchString(name) {
		return name
	}
	return "`" + strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(name) + "`"
}

func escapeString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

// formatter renders expressions as ClickHouse text with inline literals.
type formatter struct {
	anonymize bool
}

var _ expr.Visitor[string] = formatter{}

// FormatExpression renders e as ClickHouse text.
func FormatExpression(e expr.Expression) string {
	if e == nil {
		return ""
	}
	return expr.Accept[string](e, formatter{})
}

// FormatExpressionAnonymized renders e with every string and number literal
// replaced by a placeholder, so the text can be logged without leaking
// values.
func FormatExpressionAnonymized(e expr.Expression) string {
	if e == nil {
		return ""
	}
	return expr.Accept[string](e, formatter{anonymize: true})
}

func (f formatter) aliased(body, alias string) string {
	if alias == "" {
		return body
	}
	return "(" + body + " AS " + escapeIdentifier(alias) + ")"
}

func (f formatter) VisitColumn(c expr.Column) string {
	name := escapeIdentifier(c.Name)
	if c.Table != "" {
		name = escapeIdentifier(c.Table) + "." + name
	}
	if c.Alias == c.QualifiedName() {
		return name
	}
	return f.aliased(name, c.Alias)
}

func (f formatter) VisitLiteral(l expr.Literal) string {
	return f.aliased(f.value(l.Value), l.Alias)
}

func (f formatter) value(v ir.IRValue) string {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return "NULL"
	case ir.IRBool:
		return strconv.FormatBool(bool(val))
	case ir.IRString:
		if f.anonymize {
			return escapeString(AnonymousString)
		}
		return escapeString(string(val))
	case ir.IRInt, ir.IRFloat:
		if f.anonymize {
			return AnonymousNumber
		}
		return ir.Format(val)
	case ir.IRDateTime:
		if f.anonymize {
			return "toDateTime(" + escapeString(AnonymousString) + ")"
		}
		return "toDateTime(" + escapeString(val.String()) + ")"
	case ir.IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = f.value(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		// Objects have no literal syntax; render their canonical JSON.
		b, err := ir.MarshalCanonical(v)
		if err != nil || f.anonymize {
			return escapeString(AnonymousString)
		}
		return escapeString(string(b))
	}
}

func (f formatter) VisitFunctionCall(fc expr.FunctionCall) string {
	// toDateTime of a datetime literal is the literal itself.
	if fc.Name == expr.FnToDateTime && len(fc.Args) == 1 {
		if lit, ok := fc.Args[0].(expr.Literal); ok && lit.Alias == "" {
			if _, isDT := lit.Value.(ir.IRDateTime); isDT {
				return f.aliased(f.value(lit.Value), fc.Alias)
			}
		}
	}
	return f.aliased(escapeIdentifier(fc.Name)+"("+f.args(fc.Args)+")", fc.Alias)
}

func (f formatter) VisitCurriedFunctionCall(cf expr.CurriedFunctionCall) string {
	internal := cf.Internal
	internal.Alias = ""
	return f.aliased(f.VisitFunctionCall(internal)+"("+f.args(cf.Args)+")", cf.Alias)
}

func (f formatter) VisitSubscriptReference(s expr.SubscriptReference) string {
	col := s.Column
	col.Alias = ""
	return f.aliased(f.VisitColumn(col)+"["+f.VisitLiteral(s.Key)+"]", s.Alias)
}

func (f formatter) VisitLambda(l expr.Lambda) string {
	params := make([]string, len(l.Parameters))
	for i, p := range l.Parameters {
		params[i] = escapeIdentifier(p)
	}
	body := "(" + strings.Join(params, ", ") + " -> " + expr.Accept[string](l.Body, f) + ")"
	return f.aliased(body, l.Alias)
}

func (f formatter) VisitArgument(a expr.Argument) string {
	return f.aliased(escapeIdentifier(a.Name), a.Alias)
}

func (f formatter) args(args []expr.Expression) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = expr.Accept[string](a, f)
	}
	return strings.Join(parts, ", ")
}

func (f formatter) render(e expr.Expression) string {
	return expr.Accept[string](e, f)
}
