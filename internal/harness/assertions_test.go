package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splitq/internal/ir"
)

func rows(ids ...string) []ir.IRObject {
	out := make([]ir.IRObject, len(ids))
	for i, id := range ids {
		out[i] = ir.IRObject{"event_id": ir.IRString(id)}
	}
	return out
}

func passing() *Result {
	r := NewResult()
	r.Strategy = "column_split"
	r.Trace = []TraceEntry{{Seq: 1, SQL: "SELECT 1", Rows: 2}, {Seq: 2, SQL: "SELECT 2", Rows: 2}}
	r.Data = rows("a", "b")
	r.Direct = rows("a", "b")
	return r
}

func TestEvaluateExpectations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Result)
		expect Expect
		want   []string
	}{
		{
			name:   "all match",
			expect: Expect{Strategy: "column_split", SubQueries: intPtr(2), Rows: intPtr(2), MatchesDirect: true},
		},
		{
			name:   "nothing expected",
			mutate: func(r *Result) { r.Data = nil },
		},
		{
			name:   "wrong strategy",
			expect: Expect{Strategy: "time_split"},
			want:   []string{"Assertion failed: strategy\n  Expected: time_split\n  Actual: column_split\n"},
		},
		{
			name:   "wrong sub query count",
			expect: Expect{SubQueries: intPtr(3)},
			want:   []string{"Assertion failed: sub_queries\n  Expected: 3\n  Actual: 2\n"},
		},
		{
			name:   "wrong row count",
			expect: Expect{Rows: intPtr(0)},
			want:   []string{"Assertion failed: rows\n  Expected: 0\n  Actual: 2\n"},
		},
		{
			name:   "row count differs from direct",
			mutate: func(r *Result) { r.Data = rows("a") },
			expect: Expect{MatchesDirect: true},
			want:   []string{"Actual: 1 rows, direct returned 2"},
		},
		{
			name:   "row differs from direct",
			mutate: func(r *Result) { r.Data = rows("a", "c") },
			expect: Expect{MatchesDirect: true},
			want:   []string{`Actual: row 1 is {"event_id":"c"}, direct returned {"event_id":"b"}`},
		},
		{
			name:   "unexpected error stops evaluation",
			mutate: func(r *Result) { r.Err = errors.New("boom"); r.Strategy = "" },
			expect: Expect{Strategy: "column_split", Rows: intPtr(2)},
			want:   []string{"Assertion failed: error\n  Expected: no error\n  Actual: boom\n"},
		},
		{
			name:   "expected error",
			mutate: func(r *Result) { r.Err = errors.New("LIMIT BY: unsupported") },
			expect: Expect{Error: "LIMIT BY", SubQueries: intPtr(2)},
		},
		{
			name:   "expected error missing",
			expect: Expect{Error: "LIMIT BY"},
			want:   []string{"Expected: error containing \"LIMIT BY\"\n  Actual: no error"},
		},
		{
			name:   "expected error differs",
			mutate: func(r *Result) { r.Err = errors.New("disk full") },
			expect: Expect{Error: "LIMIT BY"},
			want:   []string{"Actual: disk full"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := passing()
			if tt.mutate != nil {
				tt.mutate(result)
			}
			got := EvaluateExpectations(result, tt.expect)
			require.Len(t, got, len(tt.want), "got: %v", got)
			for i, want := range tt.want {
				assert.Contains(t, got[i], want)
			}
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     ExpectRows,
		Expected: "3",
		Actual:   "2",
		Trace:    []TraceEntry{{Seq: 1, SQL: `SELECT [a] FROM [t]`, Rows: 2}},
	}
	assert.Equal(t,
		"Assertion failed: rows\n  Expected: 3\n  Actual: 2\n\nFull trace:\n  [1] rows=2 SELECT [a] FROM [t]\n",
		err.Error())
}

func TestAssertionError_NoTrace(t *testing.T) {
	err := &AssertionError{Type: ExpectStrategy, Expected: "direct", Actual: "<none>"}
	assert.Equal(t, "Assertion failed: strategy\n  Expected: direct\n  Actual: <none>\n", err.Error())
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
