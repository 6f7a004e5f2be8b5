package catalog

import (
	"slices"
	"strings"
)

// Column is one declared storage column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// IsArray reports whether the column holds an array.
func (c Column) IsArray() bool {
	return strings.HasPrefix(c.Type, "Array(")
}

// IsDateTime reports whether the column holds a timestamp.
func (c Column) IsDateTime() bool {
	return c.Type == "DateTime"
}

// IsInteger reports whether the column holds an integer of any width.
func (c Column) IsInteger() bool {
	return strings.HasPrefix(c.Type, "UInt") || strings.HasPrefix(c.Type, "Int")
}

// SplitColumns names the columns the split strategies work on. An empty
// field disables the strategies that need it.
type SplitColumns struct {
	IDColumn        string
	ProjectColumn   string
	TimestampColumn string
}

// Storage is a compiled storage spec. It implements query.DataSource.
type Storage struct {
	name       string
	localTable string
	distTable  string
	timeColumn string
	columns    []Column
	split      SplitColumns
	partition  []string
}

// Name returns the storage key, e.g. "events".
func (s *Storage) Name() string { return s.name }

// Columns returns the declared column names in declaration order.
func (s *Storage) Columns() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Schema returns the declared columns with their types.
func (s *Storage) Schema() []Column { return slices.Clone(s.columns) }

// Column looks up a declared column by name.
func (s *Storage) Column(name string) (Column, bool) {
	for _, c := range s.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// LocalTable returns the node-local table name.
func (s *Storage) LocalTable() string { return s.localTable }

// DistTable returns the distributed table name.
func (s *Storage) DistTable() string { return s.distTable }

// TimeColumn returns the required time column.
func (s *Storage) TimeColumn() string { return s.timeColumn }

// Split returns the split column names.
func (s *Storage) Split() SplitColumns { return s.split }

// Partition returns the partition key expressions.
func (s *Storage) Partition() []string { return slices.Clone(s.partition) }
