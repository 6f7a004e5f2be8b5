package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directScenario = `name: direct_count
description: "Aggregation runs directly"
storage: events
fixtures:
  generate:
    count: 4
    start: "2019-09-19T10:00:00"
    interval: 1m
    projects: 2
query:
  aggregations:
    - ["count()", "", "count"]
  groupby: [project_id]
  conditions:
    - [project_id, IN, [1, 2]]
  orderby: [project_id]
expect:
  strategy: direct
  sub_queries: 1
  rows: 2
`

type scenarioResponse struct {
	Status string     `json:"status"`
	Data   TestResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func runScenarioJSON(t *testing.T, args ...string) (scenarioResponse, error) {
	t.Helper()
	out, err := execute(t, append([]string{"--format", "json", "scenario"}, args...)...)
	var resp scenarioResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, err
}

func TestScenario_HarnessScenarios(t *testing.T) {
	resp, err := runScenarioJSON(t, filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Status)
	assert.Positive(t, resp.Data.Total)
	assert.Zero(t, resp.Data.Failed)
	assert.Equal(t, resp.Data.Total, resp.Data.Passed)
}

func TestScenario_GoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "direct_count.yaml", directScenario)
	golden := filepath.Join(dir, "golden", "direct_count.golden")

	// Update writes the golden file.
	resp, err := runScenarioJSON(t, "--update", path)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Data.Passed)
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scenario: direct_count\nstrategy: direct\nrows: 2\n")

	// A matching golden file passes.
	resp, err = runScenarioJSON(t, path)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Data.Passed)

	// A stale one fails.
	require.NoError(t, os.WriteFile(golden, []byte("scenario: direct_count\n"), 0o644))
	resp, err = runScenarioJSON(t, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "does not match golden file")
}

func TestScenario_FailedExpectation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong.yaml", `name: wrong_rows
description: "Expects too many rows"
storage: events
fixtures:
  generate:
    count: 2
    start: "2019-09-19T10:00:00"
    interval: 1m
query:
  selected_columns: [event_id]
expect:
  rows: 5
`)

	out, err := execute(t, "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_rows")
	assert.Contains(t, out, "Assertion failed: rows")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestScenario_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	resp, err := runScenarioJSON(t, dir)
	require.Error(t, err)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "broken.yaml", resp.Data.Scenarios[0].Name)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestScenario_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "direct_count.yaml", directScenario)
	writeFile(t, dir, "other.yaml", "name: other\n")

	resp, err := runScenarioJSON(t, "--filter", "direct_*", dir)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "direct_count", resp.Data.Scenarios[0].Name)
}

func TestScenario_NoScenarios(t *testing.T) {
	out, err := execute(t, "scenario", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestScenario_MissingPath(t *testing.T) {
	_, err := execute(t, "scenario", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestFilterScenarios(t *testing.T) {
	files := []string{"a/column_split.yaml", "b/time_split.yml", "c/direct.yaml"}

	got, err := filterScenarios(files, "*_split")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/column_split.yaml", "b/time_split.yml"}, got)

	got, err = filterScenarios(files, "")
	require.NoError(t, err)
	assert.Equal(t, files, got)

	_, err = filterScenarios(files, "[")
	require.Error(t, err)
}
