package querydoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/splitq/internal/reader"
)

// Document is a legacy query body.
type Document struct {
	// Storage names the catalog storage to query. Callers may override it.
	Storage string `yaml:"storage,omitempty"`

	// SelectedColumns holds column names or [function, [args], alias]
	// triples.
	SelectedColumns []any `yaml:"selected_columns,omitempty"`

	// Aggregations holds [function, column, alias] triples. An empty
	// column means no arguments, e.g. ["count()", "", "count"].
	Aggregations [][]any `yaml:"aggregations,omitempty"`

	// Conditions holds [lhs, op, rhs] triples, or lists of them for OR
	// groups. All entries must hold.
	Conditions []any `yaml:"conditions,omitempty"`

	Having []any `yaml:"having,omitempty"`

	GroupBy []string `yaml:"groupby,omitempty"`

	// OrderBy entries prefixed with "-" sort descending.
	OrderBy []string `yaml:"orderby,omitempty"`

	Limit  *int `yaml:"limit,omitempty"`
	Offset int  `yaml:"offset,omitempty"`

	// LimitBy is [n, column].
	LimitBy []any `yaml:"limitby,omitempty"`

	Totals      bool     `yaml:"totals,omitempty"`
	Sample      *float64 `yaml:"sample,omitempty"`
	Granularity *int     `yaml:"granularity,omitempty"`

	Turbo      bool `yaml:"turbo,omitempty"`
	Consistent bool `yaml:"consistent,omitempty"`
	Debug      bool `yaml:"debug,omitempty"`
}

// Settings returns the execution settings requested by the document.
func (d *Document) Settings(useSplit bool) reader.Settings {
	return reader.Settings{
		UseSplit:   useSplit,
		Turbo:      d.Turbo,
		Consistent: d.Consistent,
		Debug:      d.Debug,
	}
}

// Parse decodes a document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty query document")
		}
		return nil, fmt.Errorf("failed to parse query document: %w", err)
	}
	if len(doc.SelectedColumns) == 0 && len(doc.Aggregations) == 0 {
		return nil, fmt.Errorf("selected_columns or aggregations is required")
	}
	return &doc, nil
}

// LoadFile reads and parses a document from path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query document: %w", err)
	}
	return Parse(data)
}
