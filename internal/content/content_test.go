package content

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tlxgo/internal/dom"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name string
		typ  string
		in   string
		want any
	}{
		{name: "text is trimmed", typ: "", in: "  hello \n", want: "hello"},
		{name: "strict json", typ: "json", in: `{"a": [1, true, null]}`, want: map[string]any{"a": []any{1.0, true, nil}}},
		{name: "relaxed json", typ: TypeJSON, in: `{a: 1, b: "x"}`, want: map[string]any{"a": 1.0, "b": "x"}},
		{name: "yaml", typ: "yaml", in: "items:\n  - one\n  - 2\n", want: map[string]any{"items": []any{"one", 2.0}}},
		{name: "markdown", typ: "markdown", in: "\n    # Title\n\n    **bold**\n", want: "<h1>Title</h1>\n<p><strong>bold</strong></p>\n"},
		{name: "gfm strikethrough", typ: TypeMarkdown, in: "~~gone~~", want: "<p><del>gone</del></p>\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Type: tc.typ}
			got := Parse(tc.in, cfg)
			require.NoError(t, cfg.Err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_CapturesErrors(t *testing.T) {
	cfg := &Config{Type: "json"}
	assert.Nil(t, Parse(`{"a": [1,}`, cfg))
	require.Error(t, cfg.Err)

	cfg.Type = "json"
	Parse(`[1]`, cfg)
	assert.NoError(t, cfg.Err, "a later success clears the error")

	cfg.Type = "application/x-unknown"
	assert.Nil(t, Parse("x", cfg))
	assert.ErrorIs(t, cfg.Err, ErrUnknownType)
}

func TestFromNode(t *testing.T) {
	f, err := dom.ParseFragment(`<data type="json">{"n": 1}</data><data type="html"><b>x</b> y</data>`)
	require.NoError(t, err)

	cfg := &Config{}
	assert.Equal(t, map[string]any{"n": 1.0}, FromNode(f.Children[0], cfg))
	require.NoError(t, cfg.Err)

	assert.Equal(t, "<b>x</b> y", FromNode(f.Children[1], &Config{}))
}

func TestFromNode_ErrorShownInPlace(t *testing.T) {
	f, err := dom.ParseFragment(`<data type="json">{broken</data>`)
	require.NoError(t, err)

	n := f.Children[0]
	cfg := &Config{}
	FromNode(n, cfg)
	require.Error(t, cfg.Err)

	dom.ShowError(n, cfg.Err)
	require.Len(t, n.ByTag("error"), 1)
}
