package reader

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/splitq/internal/ir"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, Permanent},
		{"transport", &TransportError{Op: "query", Err: errors.New("reset")}, Transient},
		{"wrapped transport", fmt.Errorf("column split: %w", &TransportError{Op: "query", Err: errors.New("x")}), Transient},
		{"engine", &EngineError{Code: 62, Message: "syntax error"}, Permanent},
		{"engine wrapping deadline", &EngineError{Message: "x", Err: context.DeadlineExceeded}, Permanent},
		{"deadline", context.DeadlineExceeded, Transient},
		{"canceled", context.Canceled, Permanent},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), Transient},
		{"enoent", syscall.ENOENT, Permanent},
		{"plain", errors.New("boom"), Permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
			assert.Equal(t, tt.want == Transient, IsRetryable(tt.err))
		})
	}
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "transient", Transient.String())
	assert.Equal(t, "permanent", Permanent.String())
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	assert.ErrorIs(t, &TransportError{Op: "query", Err: cause}, cause)
	assert.ErrorIs(t, &EngineError{Message: "m", Err: cause}, cause)
	assert.Equal(t, "engine error 47: unknown identifier", (&EngineError{Code: 47, Message: "unknown identifier"}).Error())
}

func TestResult_WithExtra(t *testing.T) {
	r := NewResult([]ir.IRObject{{"a": ir.IRInt(1)}})
	r2 := r.WithExtra("strategy", ir.IRString("column_split"))

	assert.Empty(t, r.Extra)
	assert.Equal(t, ir.IRString("column_split"), r2.Extra["strategy"])
	assert.Equal(t, r.Data, r2.Data)

	bare := &Result{}
	assert.Equal(t, ir.IRInt(1), bare.WithExtra("k", ir.IRInt(1)).Extra["k"])
}
