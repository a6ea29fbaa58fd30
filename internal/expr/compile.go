package expr

import (
	"strings"
)

// voidElements never take a closing tag, so they do not open a markup run.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// CompileScript compiles one outer `${...}` block whose body may embed markup
// and further `${...}` blocks into a plain HCL expression wrapped in the same
// outer delimiters.
//
// Nested blocks are compiled recursively. Below the outermost level, runs of
// balanced markup become HCL template string literals and nested blocks are
// spliced into them as template interpolations. A nested block outside any
// markup run becomes a one-part template string, so it still yields a string.
func CompileScript(script string) string {
	return compile(script, 0)
}

func compile(script string, depth int) string {
	if !strings.HasPrefix(script, "${") || !strings.HasSuffix(script, "}") || len(script) < 3 {
		return script
	}
	inner := script[2 : len(script)-1]
	spans, _ := scanSpans(inner)
	if len(spans) == 0 && depth == 0 {
		return script
	}

	var b strings.Builder
	b.WriteString("${")
	if depth == 0 {
		last := 0
		for _, sp := range spans {
			b.WriteString(inner[last:sp.start])
			b.WriteString(compile(inner[sp.start:sp.end], depth+1))
			last = sp.end
		}
		b.WriteString(inner[last:])
	} else {
		c := &compiler{src: inner, spans: spans, depth: depth}
		c.run(&b)
	}
	b.WriteString("}")
	return b.String()
}

// compiler rewrites the body of one nested block.
type compiler struct {
	src   string
	spans []span
	next  int // index of the first span not yet consumed
	depth int
}

func (c *compiler) run(b *strings.Builder) {
	for i := 0; i < len(c.src); {
		if sp, ok := c.spanAt(i); ok {
			b.WriteByte('"')
			b.WriteString(c.nested(sp))
			b.WriteByte('"')
			i = sp.end
			continue
		}
		if isQuote(c.src[i]) {
			end := skipQuoted(c.src, i)
			if end < 0 {
				end = len(c.src)
			}
			b.WriteString(c.src[i:end])
			i = end
			continue
		}
		if tagStart(c.src, i) {
			i = c.markup(b, i)
			continue
		}
		b.WriteByte(c.src[i])
		i++
	}
}

// markup quotes the markup run starting at i and returns the index after it.
func (c *compiler) markup(b *strings.Builder, i int) int {
	b.WriteByte('"')
	open := 0
	for i < len(c.src) {
		if sp, ok := c.spanAt(i); ok {
			b.WriteString(c.nested(sp))
			i = sp.end
			continue
		}
		if !tagStart(c.src, i) {
			writeLiteral(b, c.src[i:i+1])
			i++
			continue
		}

		end := tagEnd(c.src, i)
		tag := c.src[i:end]
		writeLiteral(b, tag)
		i = end
		switch name, closing, selfClosing := tagInfo(tag); {
		case closing:
			open--
		case !selfClosing && !voidElements[name]:
			open++
		}
		if open <= 0 {
			break
		}
	}
	b.WriteByte('"')
	return i
}

// spanAt returns the nested span starting at i, if any.
func (c *compiler) spanAt(i int) (span, bool) {
	for c.next < len(c.spans) && c.spans[c.next].start < i {
		c.next++
	}
	if c.next < len(c.spans) && c.spans[c.next].start == i {
		sp := c.spans[c.next]
		c.next++
		return sp, true
	}
	return span{}, false
}

func (c *compiler) nested(sp span) string {
	return compile(c.src[sp.start:sp.end], c.depth+1)
}

// tagStart reports whether an opening or closing tag begins at i.
func tagStart(s string, i int) bool {
	if s[i] != '<' || i+1 >= len(s) {
		return false
	}
	j := i + 1
	if s[j] == '/' {
		j++
	}
	return j < len(s) && isLetter(s[j])
}

// tagEnd returns the index just past the '>' closing the tag at i, skipping
// quoted attribute values. An unclosed tag extends to the end of s.
func tagEnd(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch {
		case isQuote(s[j]):
			end := skipQuoted(s, j)
			if end < 0 {
				return len(s)
			}
			j = end - 1
		case s[j] == '>':
			return j + 1
		}
	}
	return len(s)
}

func tagInfo(tag string) (name string, closing, selfClosing bool) {
	body := strings.TrimPrefix(tag, "<")
	if strings.HasPrefix(body, "/") {
		closing = true
		body = body[1:]
	}
	selfClosing = strings.HasSuffix(tag, "/>")
	end := 0
	for end < len(body) && (isLetter(body[end]) || isDigit(body[end]) || body[end] == '-') {
		end++
	}
	return strings.ToLower(body[:end]), closing, selfClosing
}

// writeLiteral writes text escaped for an HCL quoted template. Interpolation
// markers inside tag attributes stay live.
func writeLiteral(b *strings.Builder, text string) {
	for i := 0; i < len(text); i++ {
		switch ch := text[i]; ch {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '%':
			b.WriteByte(ch)
			if i+1 < len(text) && text[i+1] == '{' {
				b.WriteByte(ch)
			}
		default:
			b.WriteByte(ch)
		}
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// StripScript removes the outer delimiters CompileScript leaves in place and
// any trailing statement terminators, returning the bare expression.
func StripScript(compiled string) string {
	body := strings.TrimSpace(compiled)
	for strings.HasPrefix(body, "${") && strings.HasSuffix(body, "}") && wrapsWhole(body) {
		body = strings.TrimSpace(body[2 : len(body)-1])
	}
	return strings.TrimRight(body, "; \t\r\n")
}

// wrapsWhole reports whether the leading `${` of s is closed by its last byte.
func wrapsWhole(s string) bool {
	spans, err := scanSpans(s)
	return err == nil && len(spans) == 1 && spans[0].start == 0 && spans[0].end == len(s)
}
