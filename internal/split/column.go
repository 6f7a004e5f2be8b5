package split

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/splitq/internal/expr"
	"github.com/roach88/splitq/internal/ir"
	"github.com/roach88/splitq/internal/query"
	"github.com/roach88/splitq/internal/reader"
)

// ColumnConfig configures a ColumnSplit.
type ColumnConfig struct {
	IDColumn        string
	ProjectColumn   string
	TimestampColumn string

	// MinCols is the smallest select list worth splitting.
	MinCols int

	// MaxResults caps the number of (project, id) pairs carried into the
	// second query.
	MaxResults int
}

// Column split defaults.
const (
	DefaultColumnSplitMinCols    = 6
	DefaultColumnSplitMaxResults = 5000
)

// ColumnSplit runs a narrow query over the identifying columns first and
// then fetches the full rows for the identifiers it returned.
type ColumnSplit struct {
	cfg ColumnConfig
	observer
}

// NewColumnSplit creates a column split strategy. Zero limits in cfg are
// replaced by the defaults.
func NewColumnSplit(cfg ColumnConfig, opts ...Option) *ColumnSplit {
	if cfg.MinCols <= 0 {
		cfg.MinCols = DefaultColumnSplitMinCols
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultColumnSplitMaxResults
	}
	return &ColumnSplit{cfg: cfg, observer: newObserver(opts)}
}

// Name implements Strategy.
func (c *ColumnSplit) Name() string { return NameColumnSplit }

// Config returns the strategy configuration.
func (c *ColumnSplit) Config() ColumnConfig { return c.cfg }

// TryExecute implements Strategy.
func (c *ColumnSplit) TryExecute(ctx context.Context, q *query.Query, s reader.Settings, run reader.Runner) (*reader.Result, bool, error) {
	if reason := c.inapplicable(q, s); reason != "" {
		return c.decline(ctx, NameColumnSplit, reason)
	}

	minimal := c.minimalQuery(q)
	if alias, shadowed := c.shadowedAlias(minimal); shadowed {
		return c.decline(ctx, NameColumnSplit, "alias shadows a split column", "alias", alias)
	}
	valid, err := minimal.ValidateAliases()
	if err != nil {
		return nil, false, fmt.Errorf("column split: %w", err)
	}
	if !valid {
		return c.decline(ctx, NameColumnSplit, "minimal query does not resolve its aliases")
	}

	run = c.counted(NameColumnSplit, run)
	first, err := run(ctx, minimal, s)
	if err != nil {
		return nil, false, fmt.Errorf("column split: minimal query: %w", err)
	}
	if len(first.Data) == 0 {
		res := &reader.Result{Data: []ir.IRObject{}, Extra: first.Extra}
		return res, true, nil
	}

	pairs, projects := c.identifiers(first.Data)
	if len(pairs) > c.cfg.MaxResults {
		c.recorder.ColumnSplitOverflow()
		return c.decline(ctx, NameColumnSplit, "too many intermediate results",
			"pairs", len(pairs), "max", c.cfg.MaxResults)
	}

	full := q.Clone()
	full.AddCondition(expr.InCondition(
		expr.Tuple(expr.Column{Name: c.cfg.ProjectColumn}, expr.Column{Name: c.cfg.IDColumn}),
		pairs...,
	))
	ReplaceCondition(full, c.cfg.ProjectColumn, expr.FnIn, expr.LiteralsTuple("", projects...))
	if lower, upper, ok := c.timestampBounds(first.Data); ok {
		ReplaceCondition(full, c.cfg.TimestampColumn, expr.FnGreaterOrEquals, expr.DateTimeLiteral(lower))
		// Events are stored with one second granularity
		ReplaceCondition(full, c.cfg.TimestampColumn, expr.FnLess, expr.DateTimeLiteral(upper))
	}
	if err := full.SetOffset(0); err != nil {
		return nil, false, err
	}
	if err := full.SetLimit(len(first.Data)); err != nil {
		return nil, false, err
	}

	second, err := run(ctx, full, s)
	if err != nil {
		return nil, false, fmt.Errorf("column split: full query: %w", err)
	}
	return second, true, nil
}

// inapplicable returns the first failed precondition, or "".
func (c *ColumnSplit) inapplicable(q *query.Query, s reader.Settings) string {
	if !s.UseSplit {
		return "split disabled"
	}
	if len(q.GroupBy()) > 0 {
		return "query has group by"
	}
	if len(q.SelectedColumns()) < c.cfg.MinCols {
		return "not enough selected columns"
	}
	if !selectsBare(q, c.cfg.IDColumn) || !selectsBare(q, c.cfg.ProjectColumn) {
		return "id and project columns are not selected"
	}
	for _, cond := range expr.FirstLevelAnd(q.Condition()) {
		if _, ok := expr.ColumnCondition(cond, c.cfg.IDColumn, expr.FnEquals, expr.FnIn); ok {
			return "query already filters on the id column"
		}
	}
	return ""
}

func selectsBare(q *query.Query, name string) bool {
	for _, s := range q.SelectedColumns() {
		if col, ok := s.Expression.(expr.Column); ok && col.Name == name && col.Alias == "" && col.Table == "" {
			return true
		}
	}
	return false
}

// minimalQuery keeps the filters, ordering and limits of q but selects only
// the identifying columns and what ORDER BY and LIMIT BY need.
func (c *ColumnSplit) minimalQuery(q *query.Query) *query.Query {
	minimal := q.Clone()
	splitCols := []string{c.cfg.IDColumn, c.cfg.ProjectColumn, c.cfg.TimestampColumn}
	cols := make([]query.SelectedExpression, 0, len(splitCols))
	for _, name := range splitCols {
		cols = append(cols, query.SelectedExpression{Name: name, Expression: expr.Column{Name: name}})
	}

	needed := orderingSymbols(q)
	for _, s := range q.SelectedColumns() {
		if isSplitColumn(s, splitCols) {
			continue
		}
		if _, ok := needed[s.Name]; ok && s.Name != "" {
			cols = append(cols, s)
			continue
		}
		if alias := expr.AliasOf(s.Expression); alias != "" {
			if _, ok := needed[alias]; ok {
				cols = append(cols, s)
				continue
			}
		}
		if _, ok := needed[expr.Key(s.Expression)]; ok {
			cols = append(cols, s)
		}
	}
	minimal.SetSelectedColumns(cols)
	return minimal
}

func isSplitColumn(s query.SelectedExpression, names []string) bool {
	col, ok := s.Expression.(expr.Column)
	if !ok || col.Alias != "" || col.Table != "" {
		return false
	}
	for _, n := range names {
		if col.Name == n {
			return true
		}
	}
	return false
}

// orderingSymbols returns the bare column names referenced by ORDER BY and
// LIMIT BY, plus the keys of their root expressions.
func orderingSymbols(q *query.Query) map[string]struct{} {
	var roots []expr.Expression
	for _, o := range q.OrderBy() {
		roots = append(roots, o.Expression)
	}
	if lb := q.LimitBy(); lb != nil && lb.Expression != nil {
		roots = append(roots, lb.Expression)
	}

	out := make(map[string]struct{})
	for _, root := range roots {
		out[expr.Key(root)] = struct{}{}
		for e := range expr.All(root) {
			if col, ok := e.(expr.Column); ok && col.Table == "" {
				out[col.Name] = struct{}{}
			}
		}
	}
	return out
}

// shadowedAlias finds an expression aliased to one of the split columns
// that is not the bare column itself.
func (c *ColumnSplit) shadowedAlias(q *query.Query) (string, bool) {
	for e := range q.AllExpressions() {
		alias := expr.AliasOf(e)
		if alias != c.cfg.IDColumn && alias != c.cfg.ProjectColumn && alias != c.cfg.TimestampColumn {
			continue
		}
		if col, ok := e.(expr.Column); ok && col.Name == alias && col.Table == "" {
			continue
		}
		return alias, true
	}
	return "", false
}

// identifiers returns the distinct (project, id) tuples and the distinct
// projects in first seen order.
func (c *ColumnSplit) identifiers(rows []ir.IRObject) (pairs []expr.Expression, projects []ir.IRValue) {
	seenPairs := make(map[string]struct{}, len(rows))
	seenProjects := make(map[string]struct{})
	for _, row := range rows {
		project := valueOrNull(row, c.cfg.ProjectColumn)
		id := valueOrNull(row, c.cfg.IDColumn)

		pk := ir.Format(project)
		if _, ok := seenProjects[pk]; !ok {
			seenProjects[pk] = struct{}{}
			projects = append(projects, project)
		}
		key := pk + "\x00" + ir.Format(id)
		if _, ok := seenPairs[key]; ok {
			continue
		}
		seenPairs[key] = struct{}{}
		pairs = append(pairs, expr.LiteralsTuple("", project, id))
	}
	return pairs, projects
}

// timestampBounds returns [min, max+1s) over the returned timestamps.
// ok is false when any timestamp cannot be read as a datetime.
func (c *ColumnSplit) timestampBounds(rows []ir.IRObject) (lower, upper ir.IRDateTime, ok bool) {
	for i, row := range rows {
		dt, isTime := ir.AsDateTime(valueOrNull(row, c.cfg.TimestampColumn))
		if !isTime {
			return ir.IRDateTime{}, ir.IRDateTime{}, false
		}
		if i == 0 || dt.Time().Before(lower.Time()) {
			lower = dt
		}
		if i == 0 || dt.Time().After(upper.Time()) {
			upper = dt
		}
	}
	return lower, ir.NewDateTime(upper.Time().Add(time.Second)), len(rows) > 0
}

func valueOrNull(row ir.IRObject, key string) ir.IRValue {
	if v, ok := row[key]; ok && v != nil {
		return v
	}
	return ir.IRNull{}
}
