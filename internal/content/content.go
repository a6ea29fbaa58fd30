// Package content extracts structured values from the markup of content
// elements. Parse failures are captured on the Config so callers can keep
// resolving and report the problem in place.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/tlxgo/internal/dom"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// Content types understood by Parse.
const (
	TypeText     = "text/plain"
	TypeHTML     = "text/html"
	TypeJSON     = "application/json"
	TypeYAML     = "application/yaml"
	TypeMarkdown = "text/markdown"
)

// ErrUnknownType is recorded for a content type Parse does not understand.
var ErrUnknownType = errors.New("unknown content type")

// Config selects how markup is parsed and receives the parse error.
type Config struct {
	// Type is one of the Type constants. Short names such as "json" are
	// accepted. Empty means TypeText.
	Type string
	// Err is set when parsing fails.
	Err error
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// Parse converts markup according to cfg.Type. Text and HTML are returned
// trimmed, JSON and YAML are decoded into plain data, and Markdown is rendered
// to HTML. On failure cfg.Err is set and nil is returned.
func Parse(markup string, cfg *Config) any {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Err = nil

	switch normalize(cfg.Type) {
	case TypeText, TypeHTML:
		return strings.TrimSpace(markup)
	case TypeJSON, TypeYAML:
		// YAML accepts JSON plus unquoted keys and trailing commentary.
		var out any
		if err := yaml.Unmarshal([]byte(markup), &out); err != nil {
			cfg.Err = fmt.Errorf("parse %s content: %w", cfg.Type, err)
			return nil
		}
		return normalizeData(out)
	case TypeMarkdown:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(dedent(markup)), &buf); err != nil {
			cfg.Err = fmt.Errorf("render markdown: %w", err)
			return nil
		}
		return buf.String()
	default:
		cfg.Err = fmt.Errorf("%q: %w", cfg.Type, ErrUnknownType)
		return nil
	}
}

// FromNode parses the content of n using its type attribute. HTML content is
// the rendered markup of the children, anything else their text.
func FromNode(n *dom.Node, cfg *Config) any {
	if cfg == nil {
		cfg = &Config{}
	}
	if typ, ok := n.Attr("type"); ok {
		cfg.Type = typ
	}
	if normalize(cfg.Type) == TypeHTML {
		var b strings.Builder
		for _, c := range n.Children {
			b.WriteString(dom.String(c))
		}
		return Parse(b.String(), cfg)
	}
	return Parse(n.Text(), cfg)
}

func normalize(typ string) string {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text", TypeText:
		return TypeText
	case "html", TypeHTML:
		return TypeHTML
	case "json", TypeJSON:
		return TypeJSON
	case "yaml", "yml", TypeYAML, "text/yaml":
		return TypeYAML
	case "markdown", "md", TypeMarkdown:
		return TypeMarkdown
	}
	return typ
}

// normalizeData rewrites decoded YAML into the shapes the rest of the engine
// uses: map[string]any, []any and float64 numbers.
func normalizeData(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeData(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalizeData(e)
		}
		return out
	case []any:
		for i, e := range x {
			x[i] = normalizeData(e)
		}
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return v
}

// dedent strips the common leading indentation of the non-blank lines of s,
// so indented markdown inside markup is not read as a code block.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}
	if prefix <= 0 {
		return strings.TrimSpace(s)
	}
	for i, l := range lines {
		if len(l) >= prefix {
			lines[i] = l[prefix:]
		} else {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
