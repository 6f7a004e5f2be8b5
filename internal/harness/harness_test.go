package harness

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitq/internal/querydoc"
	"github.com/roach88/splitq/internal/split"
)

func intPtr(n int) *int { return &n }

// wideScenario selects six columns from six generated events.
func wideScenario(name string) *Scenario {
	limit := 3
	return &Scenario{
		Name:        name,
		Description: "test scenario",
		Storage:     "events",
		Fixtures: Fixtures{Generate: &Generate{
			Count: 6, Start: "2019-09-19T10:00:00", Interval: 3 * time.Minute, Projects: 3,
		}},
		Query: querydoc.Document{
			SelectedColumns: []any{"event_id", "project_id", "timestamp", "level", "logger", "message"},
			Conditions: []any{
				[]any{"timestamp", ">=", "2019-09-19T10:00:00"},
				[]any{"timestamp", "<", "2019-09-19T11:00:00"},
			},
			OrderBy: []string{"-timestamp"},
			Limit:   &limit,
		},
	}
}

func TestRun_ScenarioFiles(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ColumnSplit(t *testing.T) {
	scenario := wideScenario("column")
	scenario.Expect = Expect{Strategy: split.NameColumnSplit, SubQueries: intPtr(2), Rows: intPtr(3), MatchesDirect: true}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, split.NameColumnSplit, result.Strategy)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, 1, result.Trace[0].Seq)
	assert.Equal(t, 2, result.Trace[1].Seq)
	assert.Equal(t, result.Direct, result.Data)
}

func TestRun_DirectRunIsNotTraced(t *testing.T) {
	scenario := wideScenario("direct")
	scenario.Split.UseSplit = new(bool)
	scenario.Expect.MatchesDirect = true

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "direct", result.Strategy)
	assert.Len(t, result.Trace, 1)
	assert.Len(t, result.Direct, 3)
}

func TestRun_StrategyFilter(t *testing.T) {
	scenario := wideScenario("time only")
	scenario.Split.Strategies = []string{split.NameTimeSplit}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.Equal(t, split.NameTimeSplit, result.Strategy)
	assert.Nil(t, result.Direct)
}

func TestRun_FailedExpectations(t *testing.T) {
	scenario := wideScenario("wrong")
	scenario.Expect = Expect{Strategy: split.NameTimeSplit, SubQueries: intPtr(5), Rows: intPtr(1)}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: strategy")
	assert.Contains(t, result.Errors[1], "Assertion failed: sub_queries")
	assert.Contains(t, result.Errors[2], "Assertion failed: rows")
}

func TestRun_ExecutionErrorIsReported(t *testing.T) {
	scenario := wideScenario("limit by")
	scenario.Query.LimitBy = []any{1, "project_id"}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Error(t, result.Err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "Expected: no error")
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"unknown storage", func(s *Scenario) { s.Storage = "nope" }, "nope"},
		{"bad fixture start", func(s *Scenario) { s.Fixtures.Generate.Start = "yesterday" }, "fixtures.generate.start"},
		{"unknown fixture column", func(s *Scenario) {
			s.Fixtures.Rows = []map[string]any{{"nope": 1}}
		}, "unknown column"},
		{"bad query", func(s *Scenario) {
			s.Query.Conditions = []any{[]any{"timestamp", "~", 1}}
		}, "failed to build query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := wideScenario(tt.name)
			tt.mutate(scenario)
			_, err := Run(context.Background(), scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
