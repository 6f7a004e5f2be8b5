package catalog

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileStorage parses a CUE value into a Storage.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the storage struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`storage: events: { ... }`)
//	s, err := CompileStorage(v.LookupPath(cue.ParsePath("storage.events")))
//
// The result is validated; the first validation error is returned as a
// CompileError.
func CompileStorage(v cue.Value) (*Storage, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Storage{}

	// Storage name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		s.name = labels[len(labels)-1].String()
	}

	var err error
	if s.localTable, err = requiredString(v, "local_table"); err != nil {
		return nil, err
	}
	if s.distTable, err = requiredString(v, "dist_table"); err != nil {
		return nil, err
	}
	if s.timeColumn, err = requiredString(v, "time_column"); err != nil {
		return nil, err
	}

	s.columns, err = parseColumns(v)
	if err != nil {
		return nil, err
	}

	splitVal := v.LookupPath(cue.ParsePath("split"))
	if splitVal.Exists() {
		if s.split.IDColumn, err = optionalString(splitVal, "id_column"); err != nil {
			return nil, err
		}
		if s.split.ProjectColumn, err = optionalString(splitVal, "project_column"); err != nil {
			return nil, err
		}
		if s.split.TimestampColumn, err = optionalString(splitVal, "timestamp_column"); err != nil {
			return nil, err
		}
	}

	partVal := v.LookupPath(cue.ParsePath("partition"))
	if partVal.Exists() {
		iter, err := partVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			p, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			s.partition = append(s.partition, p)
		}
	}

	if errs := Validate(s); len(errs) > 0 {
		return nil, &CompileError{
			Field:   errs[0].Field,
			Message: errs[0].Message,
			Pos:     v.Pos(),
		}
	}
	return s, nil
}

// parseColumns extracts the ordered column list (required, at least one).
func parseColumns(v cue.Value) ([]Column, error) {
	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{
			Field:   "columns",
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := colsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []Column
	for iter.Next() {
		colVal := iter.Value()

		name, err := requiredString(colVal, "name")
		if err != nil {
			return nil, err
		}
		typ, err := optionalString(colVal, "type")
		if err != nil {
			return nil, err
		}
		if typ == "" {
			typ = "String"
		}

		col := Column{Name: name, Type: typ}

		nullVal := colVal.LookupPath(cue.ParsePath("nullable"))
		if nullVal.Exists() {
			d, _ := nullVal.Default()
			if col.Nullable, err = d.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}

		cols = append(cols, col)
	}

	if len(cols) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     colsVal.Pos(),
		}
	}
	return cols, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &CompileError{
			Field:   field,
			Message: field + " must not be empty",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	d, _ := fv.Default()
	s, err := d.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
