package query

import (
	"slices"

	"github.com/roach88/splitq/internal/expr"
)

// ValidateAliases reports whether every symbol referenced by the query is
// declared by an alias in the query or is a column of the data source.
//
//	SELECT f(g(x)) AS A  declares A
//	SELECT a AS B        declares B, references a
//	SELECT a AS a        references a
//	SELECT t.a           references nothing
//
// It fails with UNBOUND_DATA_SOURCE when no data source is bound.
func (q *Query) ValidateAliases() (bool, error) {
	unresolved, err := q.unresolvedSymbols()
	if err != nil {
		return false, err
	}
	return len(unresolved) == 0, nil
}

// ValidateOrError is ValidateAliases with a false result reported as an
// ALIAS_RESOLUTION_FAILURE error listing the unresolved symbols.
func (q *Query) ValidateOrError() error {
	unresolved, err := q.unresolvedSymbols()
	if err != nil {
		return err
	}
	if len(unresolved) > 0 {
		return &Error{
			Code:       ErrCodeAliasResolution,
			Message:    "query references undeclared symbols",
			Unresolved: unresolved,
		}
	}
	return nil
}

func (q *Query) unresolvedSymbols() ([]string, error) {
	source, err := q.DataSource()
	if err != nil {
		return nil, err
	}

	declared := make(map[string]struct{})
	referenced := make(map[string]struct{})
	for e := range q.AllExpressions() {
		alias := expr.AliasOf(e)
		col, isColumn := e.(expr.Column)
		switch {
		case alias != "" && isColumn:
			qualified := col.QualifiedName()
			referenced[qualified] = struct{}{}
			if alias != qualified {
				declared[alias] = struct{}{}
			}
		case alias != "":
			declared[alias] = struct{}{}
		case isColumn && col.Table == "":
			referenced[col.Name] = struct{}{}
		}
	}
	for _, c := range source.Columns() {
		declared[c] = struct{}{}
	}

	var unresolved []string
	for r := range referenced {
		if _, ok := declared[r]; !ok {
			unresolved = append(unresolved, r)
		}
	}
	slices.Sort(unresolved)
	return unresolved, nil
}
