package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/splitq/internal/ir"
)

// Expectation kinds, used as AssertionError.Type.
const (
	ExpectStrategy      = "strategy"
	ExpectSubQueries    = "sub_queries"
	ExpectRows          = "rows"
	ExpectMatchesDirect = "matches_direct"
	ExpectError         = "error"
)

// AssertionError is returned when an expectation fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEntry
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] rows=%d %s\n", entry.Seq, entry.Rows, entry.SQL)
		}
	}
	return buf.String()
}

// EvaluateExpectations checks result against expect and returns one
// message per failed expectation.
func EvaluateExpectations(result *Result, expect Expect) []string {
	var errs []string
	fail := func(kind, expected, actual string) {
		errs = append(errs, (&AssertionError{
			Type:     kind,
			Expected: expected,
			Actual:   actual,
			Trace:    result.Trace,
		}).Error())
	}

	if expect.Error != "" {
		switch {
		case result.Err == nil:
			fail(ExpectError, fmt.Sprintf("error containing %q", expect.Error), "no error")
		case !strings.Contains(result.Err.Error(), expect.Error):
			fail(ExpectError, fmt.Sprintf("error containing %q", expect.Error), result.Err.Error())
		}
	} else if result.Err != nil {
		fail(ExpectError, "no error", result.Err.Error())
		return errs
	}

	if expect.Strategy != "" && result.Strategy != expect.Strategy {
		fail(ExpectStrategy, expect.Strategy, orNone(result.Strategy))
	}
	if expect.SubQueries != nil && result.SubQueries() != *expect.SubQueries {
		fail(ExpectSubQueries, fmt.Sprint(*expect.SubQueries), fmt.Sprint(result.SubQueries()))
	}
	if expect.Rows != nil && len(result.Data) != *expect.Rows {
		fail(ExpectRows, fmt.Sprint(*expect.Rows), fmt.Sprint(len(result.Data)))
	}
	if expect.MatchesDirect {
		if msg := diffRows(result.Direct, result.Data); msg != "" {
			fail(ExpectMatchesDirect, "split result equal to direct result", msg)
		}
	}
	return errs
}

// diffRows describes the first difference between want and got, or
// returns "" if they are equal row by row.
func diffRows(want, got []ir.IRObject) string {
	if len(want) != len(got) {
		return fmt.Sprintf("%d rows, direct returned %d", len(got), len(want))
	}
	for i := range want {
		if !ir.Equal(want[i], got[i]) {
			return fmt.Sprintf("row %d is %s, direct returned %s", i, format(got[i]), format(want[i]))
		}
	}
	return ""
}

func format(row ir.IRObject) string {
	data, err := ir.MarshalCanonical(row)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
