package template

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/tlxgo/internal/coerce"
	"github.com/vk/tlxgo/internal/dom"
)

// IfAttr hides its element when it resolves to "false".
const IfAttr = ":if"

// Mode is the kind of iteration a directive performs.
type Mode string

const (
	ForEach    Mode = "foreach"
	ForKeys    Mode = "forkeys"
	ForValues  Mode = "forvalues"
	ForEntries Mode = "forentries"
)

// Default parameter names bound for each iteration step.
const (
	DefaultValueParam = "currentValue"
	DefaultIndexParam = "index"
	DefaultArrayParam = "array"
)

// ErrNotCollection is returned when an iteration source is neither a sequence
// nor an object.
var ErrNotCollection = errors.New("iteration source is not a collection")

// Iteration is a parsed iteration directive.
type Iteration struct {
	Mode Mode
	// Attr is the attribute the directive was read from.
	Attr string
	// Source is the collection literal.
	Source any
	// Params name the value, index and array bindings of each step.
	Params [3]string
}

// Hidden reports whether attrs carry an :if that resolved to false.
func Hidden(attrs []dom.Attr) bool {
	for _, a := range attrs {
		if a.Name == IfAttr {
			return a.Value == "false"
		}
	}
	return false
}

// ParseIteration finds the first iteration directive in attrs, such as
// `:foreach(item,i)="[1,2]"`. It returns nil when there is none.
func ParseIteration(attrs []dom.Attr) (*Iteration, error) {
	for _, a := range attrs {
		mode, params, ok := parseDirectiveName(a.Name)
		if !ok {
			continue
		}
		it := &Iteration{
			Mode:   mode,
			Attr:   a.Name,
			Params: [3]string{DefaultValueParam, DefaultIndexParam, DefaultArrayParam},
		}
		for i, p := range params {
			if i < len(it.Params) && p != "" {
				it.Params[i] = p
			}
		}

		src := coerce.Coerce(a.Value)
		switch src.(type) {
		case []any, map[string]any:
			it.Source = src
		default:
			return nil, fmt.Errorf("%s=%q: %w", a.Name, a.Value, ErrNotCollection)
		}
		return it, nil
	}
	return nil, nil
}

func parseDirectiveName(name string) (Mode, []string, bool) {
	if !strings.HasPrefix(name, ":") {
		return "", nil, false
	}
	body := name[1:]
	var args string
	if open := strings.IndexByte(body, '('); open >= 0 {
		if !strings.HasSuffix(body, ")") {
			return "", nil, false
		}
		args = body[open+1 : len(body)-1]
		body = body[:open]
	}

	mode := Mode(body)
	switch mode {
	case ForEach, ForKeys, ForValues, ForEntries:
	default:
		return "", nil, false
	}

	var params []string
	if strings.TrimSpace(args) != "" {
		for _, p := range strings.Split(args, ",") {
			params = append(params, strings.TrimSpace(p))
		}
	}
	return mode, params, true
}

// Steps returns the values visited by the iteration in order, together with
// the array the index refers to.
func (it *Iteration) Steps() ([]any, error) {
	switch src := it.Source.(type) {
	case []any:
		switch it.Mode {
		case ForEach, ForValues:
			return src, nil
		case ForKeys:
			keys := make([]any, len(src))
			for i := range src {
				keys[i] = strconv.Itoa(i)
			}
			return keys, nil
		case ForEntries:
			entries := make([]any, len(src))
			for i, v := range src {
				entries[i] = []any{strconv.Itoa(i), v}
			}
			return entries, nil
		}
	case map[string]any:
		keys := make([]string, 0, len(src))
		for k := range src {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make([]any, len(keys))
		for i, k := range keys {
			switch it.Mode {
			case ForKeys:
				out[i] = k
			case ForValues:
				out[i] = src[k]
			case ForEntries:
				out[i] = []any{k, src[k]}
			default:
				return nil, fmt.Errorf("%s over an object: %w", it.Mode, ErrNotCollection)
			}
		}
		return out, nil
	}
	return nil, ErrNotCollection
}
