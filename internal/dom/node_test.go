package dom

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tlxgo/internal/reactor"
)

func mustFragment(t *testing.T, markup string) *Node {
	t.Helper()
	f, err := ParseFragment(markup)
	require.NoError(t, err)
	return f
}

func TestParseAndRender_RoundTrip(t *testing.T) {
	markup := `<p class="a">Hi <b>there</b></p><!--note--><ul><li>1</li></ul>`
	f := mustFragment(t, markup)

	require.Len(t, f.Children, 3)
	assert.Equal(t, "p", f.Children[0].Tag)
	assert.Equal(t, CommentNode, f.Children[1].Kind)
	assert.Equal(t, markup, String(f))
}

func TestParse_Document(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<!DOCTYPE html><html><head></head><body><p id="x">a</p></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, DocumentNode, doc.Kind)
	p := doc.ByID("x")
	require.NotNil(t, p)
	assert.Equal(t, "a", p.Text())
}

func TestParse_ShadowTemplate(t *testing.T) {
	markup := `<div><template shadowrootmode="open"><span>in</span></template><p>x</p></div>`
	f := mustFragment(t, markup)

	host := f.Children[0]
	require.NotNil(t, host.Shadow)
	require.Len(t, host.Children, 1, "the shadow template is not a child")
	assert.Equal(t, "in", host.Shadow.Text())
	assert.Same(t, host, host.Shadow.Parent)
	assert.Equal(t, markup, String(f))
}

func TestNode_ScriptTextIsRaw(t *testing.T) {
	f := mustFragment(t, `<script type="application/tlx">a < b && c</script>`)
	s := f.Children[0]
	assert.True(t, s.IsScript())
	assert.Equal(t, "a < b && c", s.Text())
	assert.Equal(t, `<script type="application/tlx">a < b && c</script>`, String(f))
}

func TestNode_Liveness(t *testing.T) {
	f := mustFragment(t, `<div><span>x</span></div>`)
	span := f.ByTag("span")[0]
	assert.False(t, span.Connected())

	f.Mount()
	assert.True(t, span.Connected())

	span.Detach()
	assert.False(t, span.Connected())
	assert.Empty(t, f.Children[0].Children)

	f.Unmount()
	assert.False(t, f.Connected())
}

func TestNode_ModelSetOnce(t *testing.T) {
	n := NewElement("div")
	assert.True(t, n.SetModel("first"))
	assert.False(t, n.SetModel("second"))
	m, ok := n.Model()
	require.True(t, ok)
	assert.Equal(t, "first", m)
}

func TestNode_RenderHook(t *testing.T) {
	n := NewElement("div")
	assert.False(t, n.BeginRender(), "no hook, nothing to render")

	calls := 0
	n.OnRender = func(self *Node) {
		calls++
		assert.Equal(t, reactor.Rendering, self.RenderState())
		assert.False(t, self.BeginRender(), "re-entry is refused")
	}
	require.True(t, n.BeginRender())
	n.Render()
	n.EndRender()
	assert.Equal(t, 1, calls)
	assert.Equal(t, reactor.Idle, n.RenderState())
}

func TestNode_ValueSink(t *testing.T) {
	f := mustFragment(t, `<input name="email"><textarea name="bio"></textarea><div name="x"></div><input>`)
	input, area, div, anon := f.Children[0], f.Children[1], f.Children[2], f.Children[3]

	assert.True(t, input.SupportsDirectValueSink())
	assert.True(t, area.SupportsDirectValueSink())
	assert.False(t, div.SupportsDirectValueSink())
	assert.False(t, anon.SupportsDirectValueSink())
	assert.Equal(t, "email", input.SinkName())

	input.SetValue(3)
	v, _ := input.Attr("value")
	assert.Equal(t, "3", v)
	assert.Equal(t, 3, input.Value)

	area.SetValue("hello")
	assert.Equal(t, "hello", area.Text())
}

func TestNode_TextareaValueKeepsTemplate(t *testing.T) {
	area := mustFragment(t, `<textarea name="bio">${bio}</textarea>`).Children[0]
	body := area.Children[0]
	body.Template = body.Data

	area.SetValue("new text")
	require.Len(t, area.Children, 1)
	assert.Same(t, body, area.Children[0])
	assert.Equal(t, "new text", body.Data)
	assert.Equal(t, "${bio}", body.Template)
	assert.Equal(t, "new text", area.Value)
}

func TestNode_Clone(t *testing.T) {
	f := mustFragment(t, `<ul class="x"><li>a</li><li>b</li></ul>`)
	ul := f.Children[0]
	ul.SetModel("m")
	ul.OnRender = func(*Node) {}

	c := ul.Clone()
	assert.Nil(t, c.Parent)
	assert.Nil(t, c.OnRender)
	_, ok := c.Model()
	assert.False(t, ok)
	assert.Equal(t, String(ul), String(c))

	c.SetAttr("class", "y")
	c.Children[0].Children[0].Data = "changed"
	assert.Equal(t, `<ul class="x"><li>a</li><li>b</li></ul>`, String(ul))
}

func TestNode_AttrHelpers(t *testing.T) {
	n := NewElement("P", Attr{Name: "id", Value: "a"})
	assert.Equal(t, "p", n.Tag)

	n.SetAttr("title", "t")
	n.SetAttr("id", "b")
	n.RemoveAttr("missing")
	want := []Attr{{Name: "id", Value: "b"}, {Name: "title", Value: "t"}}
	if diff := cmp.Diff(want, n.Attrs); diff != "" {
		t.Errorf("attrs mismatch (-want +got):\n%s", diff)
	}

	n.RemoveAttr("id")
	assert.False(t, n.HasAttr("id"))
	n.Hidden = true
	assert.Equal(t, `<p title="t" hidden=""></p>`, String(n))
}

func TestAttributes(t *testing.T) {
	f := mustFragment(t, `<c-card count="3" flag label="hi" data='{"a":[1]}' skip="1"></c-card>`)
	got := Attributes(f.Children[0], func(name string) bool { return name != "skip" })

	want := map[string]any{
		"title": "",
		"count": 3.0,
		"flag":  true,
		"label": "hi",
		"data":  map[string]any{"a": []any{1.0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestShowError(t *testing.T) {
	n := mustFragment(t, `<div><p>content</p></div>`).Children[0]
	ShowError(n, errors.New("bad json"))
	assert.Equal(t, `<div><error>bad json</error></div>`, String(n))

	ShowError(n, nil)
	assert.Equal(t, `<div><error>bad json</error></div>`, String(n))
}

func TestNode_InsertAfterAndSiblings(t *testing.T) {
	f := mustFragment(t, `<a></a><c></c>`)
	a, c := f.Children[0], f.Children[1]
	b := NewElement("b")

	f.InsertAfter(b, a)
	assert.Equal(t, `<a></a><b></b><c></c>`, String(f))
	assert.Same(t, b, a.NextSibling())
	assert.Nil(t, c.NextSibling())

	other := mustFragment(t, `<x></x><y></y>`)
	f.ReplaceChildren(other.Children...)
	assert.Equal(t, `<x></x><y></y>`, String(f))
	assert.Empty(t, other.Children)
}
