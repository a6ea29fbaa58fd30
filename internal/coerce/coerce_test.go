package coerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want any
	}{
		{"integer", "42", float64(42)},
		{"float", "1.5", 1.5},
		{"true", "true", true},
		{"false", "false", false},
		{"null", "null", nil},
		{"array", `[1,"a"]`, []any{float64(1), "a"}},
		{"object", `{"a":{"b":2}}`, map[string]any{"a": map[string]any{"b": float64(2)}}},
		{"plain text passes through", "hello", "hello"},
		{"empty string passes through", "", ""},
		{"padded literal", " 7 ", float64(7)},
		{"broken json passes through", `{"a":`, `{"a":`},
		{"non-string unchanged", 12, 12},
		{"nil unchanged", nil, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Coerce(tc.in))
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "text", String("text"))
	assert.Equal(t, "3", String(3))
	assert.Equal(t, "true", String(true))
	assert.Equal(t, `{"a":[1,2]}`, String(map[string]any{"a": []any{1, 2}}))
}
