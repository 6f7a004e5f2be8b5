package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the trace of a scenario run as stable text: a header
// with the answering strategy and row count, then every statement with its
// bound parameters.
func Snapshot(scenarioName string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", scenarioName)
	fmt.Fprintf(&b, "strategy: %s\n", orNone(result.Strategy))
	fmt.Fprintf(&b, "rows: %d\n", len(result.Data))
	for _, entry := range result.Trace {
		fmt.Fprintf(&b, "\n-- %d rows=%d\n", entry.Seq, entry.Rows)
		fmt.Fprintf(&b, "%s\n", entry.SQL)
		fmt.Fprintf(&b, "params: %s\n", entry.Params)
		if entry.Error != "" {
			fmt.Fprintf(&b, "error: %s\n", entry.Error)
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
