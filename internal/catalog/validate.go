package catalog

import (
	"fmt"
)

// Validation error codes (E100-E199)
const (
	ErrStorageNameEmpty    = "E101" // storage name is required
	ErrDuplicateColumn     = "E102" // column declared twice
	ErrUnknownTimeColumn   = "E103" // time_column is not a declared column
	ErrTimeColumnType      = "E104" // time_column is not a DateTime
	ErrUnknownSplitColumn  = "E105" // split column is not a declared column
	ErrIncompleteSplit     = "E106" // id_column without project_column or vice versa
	ErrSplitTimestampType  = "E107" // split timestamp_column is not a DateTime
	ErrPartitionEmptyEntry = "E108" // empty partition expression
)

// ValidationError represents a storage validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled storage against the catalog rules.
// Returns all errors found (does not fail-fast).
func Validate(s *Storage) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if s.name == "" {
		add(ErrStorageNameEmpty, "name", "storage name is required")
	}

	seen := make(map[string]bool, len(s.columns))
	for _, c := range s.columns {
		if seen[c.Name] {
			add(ErrDuplicateColumn, "columns", "column %q is declared more than once", c.Name)
		}
		seen[c.Name] = true
	}

	if tc, ok := s.Column(s.timeColumn); !ok {
		add(ErrUnknownTimeColumn, "time_column", "%q is not a declared column", s.timeColumn)
	} else if !tc.IsDateTime() {
		add(ErrTimeColumnType, "time_column", "%q has type %s, want DateTime", s.timeColumn, tc.Type)
	}

	sc := s.split
	for _, f := range []struct{ field, name string }{
		{"split.id_column", sc.IDColumn},
		{"split.project_column", sc.ProjectColumn},
		{"split.timestamp_column", sc.TimestampColumn},
	} {
		if f.name != "" && !seen[f.name] {
			add(ErrUnknownSplitColumn, f.field, "%q is not a declared column", f.name)
		}
	}
	if (sc.IDColumn == "") != (sc.ProjectColumn == "") {
		add(ErrIncompleteSplit, "split", "id_column and project_column must be set together")
	}
	if sc.TimestampColumn != "" {
		if c, ok := s.Column(sc.TimestampColumn); ok && !c.IsDateTime() {
			add(ErrSplitTimestampType, "split.timestamp_column", "%q has type %s, want DateTime", sc.TimestampColumn, c.Type)
		}
	}

	for i, p := range s.partition {
		if p == "" {
			add(ErrPartitionEmptyEntry, fmt.Sprintf("partition[%d]", i), "partition expression is empty")
		}
	}

	return errs
}
