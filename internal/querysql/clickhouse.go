package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/splitq/internal/query"
)

// distributed is implemented by data sources that name a distributed table.
type distributed interface {
	DistTable() string
}

// local is implemented by data sources that name a node-local table.
type local interface {
	LocalTable() string
}

// FormatQuery renders q as ClickHouse SQL with inline literals. It is used
// for logs and for explain output, never for execution.
func FormatQuery(q *query.Query) (string, error) {
	return formatQuery(q, formatter{})
}

// FormatQueryAnonymized renders q like FormatQuery with every literal
// replaced by a placeholder.
func FormatQueryAnonymized(q *query.Query) (string, error) {
	return formatQuery(q, formatter{anonymize: true})
}

func formatQuery(q *query.Query, f formatter) (string, error) {
	if q == nil {
		return "", fmt.Errorf("cannot format nil query")
	}
	source, err := q.DataSource()
	if err != nil {
		return "", err
	}
	table := source.Name()
	if d, ok := source.(distributed); ok && d.DistTable() != "" {
		table = d.DistTable()
	}

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
		b.WriteString(f.selected(s))
	}

	b.WriteString(" FROM ")
	b.WriteString(escapeIdentifier(table))
	if q.Final() {
		b.WriteString(" FINAL")
	}
	if rate, ok := q.Sample(); ok {
		b.WriteString(" SAMPLE ")
		b.WriteString(strconv.FormatFloat(rate, 'g', -1, 64))
	}
	if aj := q.ArrayJoin(); aj != nil {
		b.WriteString(" ARRAY JOIN ")
		b.WriteString(f.render(aj))
	}
	if pw := q.Prewhere(); pw != nil {
		b.WriteString(" PREWHERE ")
		b.WriteString(f.render(pw))
	}
	if cond := q.Condition(); cond != nil {
		b.WriteString(" WHERE ")
		b.WriteString(f.render(cond))
	}
	if groupBy := q.GroupBy(); len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(f.args(groupBy))
		if q.Totals() {
			b.WriteString(" WITH TOTALS")
		}
	}
	if having := q.Having(); having != nil {
		b.WriteString(" HAVING ")
		b.WriteString(f.render(having))
	}
	if orderBy := q.OrderBy(); len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range orderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.render(o.Expression))
			b.WriteString(" ")
			b.WriteString(string(o.Direction))
		}
	}
	if lb := q.LimitBy(); lb != nil {
		fmt.Fprintf(&b, " LIMIT %d BY %s", lb.Limit, f.render(lb.Expression))
	}
	if limit, ok := q.Limit(); ok {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset := q.Offset(); offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String(), nil
}

// selected renders a select list entry, naming it when the expression does
// not already carry its name as an alias.
func (f formatter) selected(s query.SelectedExpression) string {
	body := f.render(s.Expression)
	if s.Name == "" || strings.HasSuffix(body, " AS "+escapeIdentifier(s.Name)+")") || body == escapeIdentifier(s.Name) {
		return body
	}
	return body + " AS " + escapeIdentifier(s.Name)
}
