package ir

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"null", IRNull{}, `null`},
		{"int", IRInt(-12), `-12`},
		{"integral float", IRFloat(3), `3`},
		{"float", IRFloat(0.5), `0.5`},
		{"negative zero", IRFloat(math.Copysign(0, -1)), `0`},
		{"datetime", NewDateTime(time.Date(2019, 9, 19, 11, 0, 0, 0, time.UTC)), `"2019-09-19T11:00:00"`},
		{"no html escape", IRString("<a&b>"), `"<a&b>"`},
		{"line separator literal", IRString("a\u2028b"), "\"a\u2028b\""},
		{"escaped backslash kept", IRString(`\u2028`), `"\\u2028"`},
		{"nfc", IRString("e\u0301"), "\"\u00e9\""},
		{"object sorted", IRObject{"b": IRInt(1), "a": IRBool(true)}, `{"a":true,"b":1}`},
		{"native map", map[string]any{"z": "y", "a": int64(1)}, `{"a":1,"z":"y"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(IRFloat(math.NaN()))
	assert.Error(t, err)

	_, err = MarshalCanonical(IRArray{IRFloat(math.Inf(1))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[0]")
}

func TestMarshalCanonical_Unsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	assert.Error(t, err)
}
