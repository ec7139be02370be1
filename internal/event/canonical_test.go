package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"sorted keys", map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{"nested", map[string]any{"x": []any{"y", true, int64(-3)}}, `{"x":["y",true,-3]}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash kept", `\u2028`, `"\\u2028"`},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"utf16 order", map[string]any{"\U0001F600": 1, "\uFB01": 2}, "{\"\U0001F600\":1,\"\uFB01\":2}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonicalRejects(t *testing.T) {
	for name, input := range map[string]any{
		"nil":      nil,
		"float":    1.5,
		"struct":   struct{}{},
		"in array": []any{nil},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(input)
			assert.Error(t, err)
		})
	}
}
