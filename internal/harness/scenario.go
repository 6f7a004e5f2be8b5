package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/splitq/internal/querydoc"
	"github.com/roach88/splitq/internal/split"
)

// Scenario defines a split conformance scenario.
// A scenario loads fixture rows into a storage, runs one query through the
// split strategies and checks the outcome against a direct execution.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Storage is the catalog storage the fixtures and query use.
	Storage string `yaml:"storage"`

	// Fixtures are the rows loaded before the query runs.
	Fixtures Fixtures `yaml:"fixtures"`

	// Split overrides the strategy configuration.
	Split SplitSettings `yaml:"split,omitempty"`

	// Query is the legacy query body. Its storage field is ignored.
	Query querydoc.Document `yaml:"query"`

	// Expect is checked after the run. Empty fields are not checked.
	Expect Expect `yaml:"expect"`
}

// Fixtures describes the rows of a scenario. Generated rows come first.
type Fixtures struct {
	Generate *Generate       `yaml:"generate,omitempty"`
	Rows     []map[string]any `yaml:"rows,omitempty"`
}

// Generate describes Count synthetic rows. Row i gets Start + i*Interval
// in the storage time column, project i%Projects+1 and a 32 digit hex id
// of i+1. Values cycles per column; other columns get a type default.
type Generate struct {
	Count    int              `yaml:"count"`
	Start    string           `yaml:"start"`
	Interval time.Duration    `yaml:"interval"`
	Projects int              `yaml:"projects,omitempty"`
	Values   map[string][]any `yaml:"values,omitempty"`
}

// SplitSettings overrides the strategy defaults for one scenario.
type SplitSettings struct {
	// UseSplit defaults to true.
	UseSplit *bool `yaml:"use_split,omitempty"`

	// Strategies filters and orders the storage strategies by name.
	// Empty means all, column split first.
	Strategies []string `yaml:"strategies,omitempty"`

	Column ColumnSettings `yaml:"column,omitempty"`
	Time   TimeSettings   `yaml:"time,omitempty"`
}

// ColumnSettings mirrors split.ColumnConfig limits.
type ColumnSettings struct {
	MinCols    int `yaml:"min_cols,omitempty"`
	MaxResults int `yaml:"max_results,omitempty"`
}

// TimeSettings mirrors split.TimeConfig limits.
type TimeSettings struct {
	InitialStep time.Duration `yaml:"initial_step,omitempty"`
	Growth      int           `yaml:"growth,omitempty"`
	MaxStep     time.Duration `yaml:"max_step,omitempty"`
	MaxOffset   int           `yaml:"max_offset,omitempty"`
}

// Expect holds the expected outcome of a scenario.
type Expect struct {
	// Strategy is the strategy that must answer: column_split,
	// time_split or direct.
	Strategy string `yaml:"strategy,omitempty"`

	// SubQueries is the exact number of statements the engine issues.
	SubQueries *int `yaml:"sub_queries,omitempty"`

	// Rows is the exact number of result rows.
	Rows *int `yaml:"rows,omitempty"`

	// MatchesDirect requires the split result to equal a direct execution.
	MatchesDirect bool `yaml:"matches_direct,omitempty"`

	// Error is a substring of the expected execution error.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Storage == "" {
		return fmt.Errorf("storage is required")
	}
	if len(s.Query.SelectedColumns) == 0 && len(s.Query.Aggregations) == 0 {
		return fmt.Errorf("query: selected_columns or aggregations is required")
	}

	if g := s.Fixtures.Generate; g != nil {
		if g.Count <= 0 {
			return fmt.Errorf("fixtures.generate: count must be positive")
		}
		if g.Start == "" {
			return fmt.Errorf("fixtures.generate: start is required")
		}
		if g.Interval < 0 {
			return fmt.Errorf("fixtures.generate: interval must be non-negative")
		}
		if g.Projects < 0 {
			return fmt.Errorf("fixtures.generate: projects must be non-negative")
		}
		for col, values := range g.Values {
			if len(values) == 0 {
				return fmt.Errorf("fixtures.generate.values[%s]: at least one value is required", col)
			}
		}
	}

	for i, name := range s.Split.Strategies {
		if name != split.NameColumnSplit && name != split.NameTimeSplit {
			return fmt.Errorf("split.strategies[%d]: unknown strategy %q", i, name)
		}
	}

	e := s.Expect
	if e.SubQueries != nil && *e.SubQueries < 0 {
		return fmt.Errorf("expect.sub_queries must be non-negative")
	}
	if e.Rows != nil && *e.Rows < 0 {
		return fmt.Errorf("expect.rows must be non-negative")
	}
	if e.Error != "" && (e.Strategy != "" || e.Rows != nil || e.MatchesDirect) {
		return fmt.Errorf("expect.error excludes strategy, rows and matches_direct")
	}
	return nil
}

// useSplit reports whether split execution is on for the scenario.
func (s *Scenario) useSplit() bool {
	return s.Split.UseSplit == nil || *s.Split.UseSplit
}
