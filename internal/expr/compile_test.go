package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileScript(t *testing.T) {
	testCases := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "no nested blocks",
			script: "${x}",
			want:   "${x}",
		},
		{
			name:   "markup run with interpolation",
			script: `${${join("", [for item in items : <li>${item}</li>])}}`,
			want:   `${${join("", [for item in items : "<li>${item}</li>"])}}`,
		},
		{
			name:   "bare nested block becomes a string",
			script: "${${a ? ${b} : c}}",
			want:   `${${a ? "${b}" : c}}`,
		},
		{
			name:   "attributes and void elements",
			script: `${${x ? <p class="big">hi<br>${name}</p> : ""}}`,
			want:   `${${x ? "<p class=\"big\">hi<br>${name}</p>" : ""}}`,
		},
		{
			name:   "nested markup inside markup",
			script: `${${<ul>${join("", [for i in xs : <li>${i}</li>])}</ul>}}`,
			want:   `${${"<ul>${join("", [for i in xs : "<li>${i}</li>"])}</ul>"}}`,
		},
		{
			name:   "comparison is not a tag",
			script: "${${a < b ? ${x} : ${y}}}",
			want:   `${${a < b ? "${x}" : "${y}"}}`,
		},
		{
			name:   "not a block",
			script: "plain",
			want:   "plain",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompileScript(tc.script))
		})
	}
}

func TestStripScript(t *testing.T) {
	assert.Equal(t, "x", StripScript("${${x}}"))
	assert.Equal(t, "a + b", StripScript("${ a + b; }"))
	assert.Equal(t, `"${a}${b}"`, StripScript(`${"${a}${b}"}`))
	assert.Equal(t, "${a} ${b}", StripScript("${a} ${b}"), "two blocks are not one wrapper")
}

func TestCompiledScriptEvaluates(t *testing.T) {
	src := `join("", [for item in items : <li>${item}</li>])`
	compiled := StripScript(CompileScript("${${" + src + "}}"))
	require.Equal(t, `join("", [for item in items : "<li>${item}</li>"])`, compiled)

	got, err := NewEvaluator().Expression(compiled, Vars{"items": []any{"a", "b"}})
	require.NoError(t, err)
	s, err := ToString(got)
	require.NoError(t, err)
	assert.Equal(t, "<li>a</li><li>b</li>", s)
}

func TestCompileScript_AttributeInterpolationStaysLive(t *testing.T) {
	got := CompileScript(`${${<a href="${url}">go</a>}}`)
	assert.Equal(t, `${${"<a href=\"${url}\">go</a>"}}`, got)
}
