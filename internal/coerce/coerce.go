// Package coerce turns attribute and input strings into typed model values.
package coerce

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Coerce parses a string as a JSON literal (object, array, number, boolean or
// null). A string that does not parse is returned unchanged, as is any value
// that is not a string.
func Coerce(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return s
	}
	return out
}

// String renders a model value back into attribute text: strings verbatim,
// nil as "", everything else as JSON.
func String(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	b, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(b)
}
