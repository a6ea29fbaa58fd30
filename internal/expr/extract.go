package expr

import "errors"

var (
	// ErrUnterminatedQuote reports a quoted span with no closing quote.
	ErrUnterminatedQuote = errors.New("unterminated quote")
	// ErrUnbalancedMarker reports a `${` with no matching `}`.
	ErrUnbalancedMarker = errors.New("unbalanced interpolation marker")
)

// span is the half-open byte range of one top-level match.
type span struct {
	start, end int
}

// ExtractBalanced returns the maximal top-level `${...}` expressions of text in
// order, each with its delimiters. Quoted spans are skipped, so markers inside
// quotes never match. Inside a match, bare `{` and `}` count toward nesting as
// well as `${`, so object literals balance; an unmatched bare `{` such as
// "${a{b}" leaves the match open. Malformed input yields the matches found
// before the problem.
func ExtractBalanced(text string) []string {
	matches, _ := Scan(text)
	return matches
}

// Scan is ExtractBalanced that also reports why scanning stopped early.
func Scan(text string) ([]string, error) {
	spans, err := scanSpans(text)
	matches := make([]string, 0, len(spans))
	for _, sp := range spans {
		matches = append(matches, text[sp.start:sp.end])
	}
	return matches, err
}

func scanSpans(text string) ([]span, error) {
	var spans []span
	n := len(text)
	for i := 0; i < n; {
		c := text[i]
		if isQuote(c) {
			end := skipQuoted(text, i)
			if end < 0 {
				return spans, ErrUnterminatedQuote
			}
			i = end
			continue
		}
		if !isMarker(text, i) {
			i++
			continue
		}

		depth := 1
		j := i + 2
		for depth > 0 {
			if j >= n {
				return spans, ErrUnbalancedMarker
			}
			switch {
			case isQuote(text[j]):
				end := skipQuoted(text, j)
				if end < 0 {
					return spans, ErrUnterminatedQuote
				}
				j = end
				continue
			case isMarker(text, j):
				depth++
				j += 2
				continue
			case text[j] == '{':
				depth++
			case text[j] == '}':
				depth--
			}
			j++
		}
		spans = append(spans, span{start: i, end: j})
		i = j
	}
	return spans, nil
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

func isMarker(text string, i int) bool {
	return text[i] == '$' && i+1 < len(text) && text[i+1] == '{'
}

// skipQuoted returns the index just past the quote that closes the span
// opening at i, or -1 when the span is unterminated. Backslash escapes the
// next byte.
func skipQuoted(text string, i int) int {
	q := text[i]
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return -1
}
