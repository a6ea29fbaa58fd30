package template

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tlxgo/internal/dom"
	"github.com/vk/tlxgo/internal/expr"
	"github.com/vk/tlxgo/internal/reactor"
)

func setup(t *testing.T, markup string, data map[string]any) (*Engine, *dom.Node, *reactor.Store) {
	t.Helper()
	ids := 0
	e := New(WithIDFunc(func() string {
		ids++
		return fmt.Sprintf("script-%d", ids)
	}))
	root, err := dom.ParseFragment(markup)
	require.NoError(t, err)
	root.Mount()

	model, ok := e.Wrap(data).(*reactor.Store)
	require.True(t, ok)
	return e, root, model
}

func TestResolve_EndToEnd(t *testing.T) {
	e, root, model := setup(t, `<p>Count: ${count}</p>`, map[string]any{"count": 1})

	e.Resolve(root, model, Options{})
	assert.Equal(t, `<p>Count: 1</p>`, dom.String(root))

	require.NoError(t, model.Set("count", 2))
	assert.Equal(t, `<p>Count: 2</p>`, dom.String(root))
}

func TestResolve_OnlyReadersAreUpdated(t *testing.T) {
	e, root, model := setup(t, `<p>${a}</p><p>${b}</p>`, map[string]any{"a": "x", "b": "y"})
	e.Resolve(root, model, Options{})

	second := root.Children[1].Children[0]
	rendered := 0
	second.OnRender = func(*dom.Node) { rendered++ }

	require.NoError(t, model.Set("a", "z"))
	assert.Equal(t, `<p>z</p><p>y</p>`, dom.String(root))
	assert.Equal(t, 0, rendered)

	require.NoError(t, model.Set("b", "w"))
	assert.Equal(t, `<p>z</p><p>w</p>`, dom.String(root))
	assert.Equal(t, 1, rendered)
}

func TestResolve_NestedPaths(t *testing.T) {
	e, root, model := setup(t, `<p title="${user.name}">${upper(user.name)}</p>`, map[string]any{
		"user": map[string]any{"name": "ada", "age": 36},
	})
	e.Resolve(root, model, Options{})
	assert.Equal(t, `<p title="ada">ADA</p>`, dom.String(root))

	user := model.Value("user").(*reactor.Store)
	require.NoError(t, user.Set("age", 37))
	require.NoError(t, user.Set("name", "grace"))
	assert.Equal(t, `<p title="grace">GRACE</p>`, dom.String(root))
}

func TestResolve_IterationReexpandsFromSnapshot(t *testing.T) {
	e, root, model := setup(t,
		`<ul :foreach(item,i)="${items}"><li>${item}</li><li>${i}</li><li>x</li></ul>`,
		map[string]any{"items": []any{"a", "b"}},
	)
	e.Resolve(root, model, Options{})

	ul := root.Children[0]
	require.Len(t, ul.Children, 6)
	require.Len(t, ul.Snapshot, 3)
	assert.Equal(t, "a", ul.Children[0].Text())
	assert.Equal(t, "0", ul.Children[1].Text())
	assert.Equal(t, "b", ul.Children[3].Text())
	assert.Equal(t, "1", ul.Children[4].Text())

	require.NoError(t, model.Set("items", []any{"a", "b", "c", "d"}))
	require.Len(t, ul.Children, 12, "re-expansion starts from the snapshot, not the expanded children")
	assert.Equal(t, "d", ul.Children[9].Text())
	assert.Equal(t, "3", ul.Children[10].Text())
}

func TestResolve_IterationDefaultsAndModes(t *testing.T) {
	e, root, model := setup(t,
		`<ol :forentries='{"b":2,"a":1}'><li>${currentValue[0]}=${currentValue[1]} of ${length(array)}</li></ol>`,
		map[string]any{},
	)
	e.Resolve(root, model, Options{})
	assert.Equal(t, `<ol :forentries="{&#34;b&#34;:2,&#34;a&#34;:1}"><li>a=1 of 2</li><li>b=2 of 2</li></ol>`, dom.String(root))
}

func TestResolve_IfHidesAndStops(t *testing.T) {
	e, root, model := setup(t, `<p :if="${show}">${msg}</p>`, map[string]any{"show": false, "msg": "hi"})
	e.Resolve(root, model, Options{})

	p := root.Children[0]
	assert.True(t, p.Hidden)
	assert.Equal(t, "${msg}", p.Text(), "children of a hidden element are not resolved")

	require.NoError(t, model.Set("show", true))
	assert.False(t, p.Hidden)
	assert.Equal(t, "hi", p.Text())
}

func TestResolve_ValueAttributeAndSink(t *testing.T) {
	e, root, model := setup(t, `<input name="count" value="${count}">`, map[string]any{"count": 1})
	e.Resolve(root, model, Options{})

	input := root.Children[0]
	assert.Equal(t, 1.0, input.Value)

	require.NoError(t, model.Set("count", 5))
	assert.Equal(t, 5, input.Value)
	v, _ := input.Attr("value")
	assert.Equal(t, "5", v)
}

func TestResolve_ExtrasShadowModel(t *testing.T) {
	e, root, model := setup(t, `<p>${name}</p>`, map[string]any{"name": "model"})
	e.Resolve(root, model, Options{Extras: map[string]any{"name": "extra"}})
	assert.Equal(t, `<p>extra</p>`, dom.String(root))
}

func TestResolve_ErrorHandling(t *testing.T) {
	e, root, model := setup(t, `<p>${missing}</p><p title="${1 +}">x</p>`, map[string]any{})
	e.Resolve(root, model, Options{})
	assert.Equal(t, `<p>${missing}</p><p title="${1 +}">x</p>`, dom.String(root), "failures keep the original source")

	_, root2, _ := setup(t, `<p>${missing}</p>`, map[string]any{})
	var seen error
	e.Resolve(root2, model, Options{OnError: func(_ *dom.Node, original string, err error) string {
		seen = err
		return "ERR(" + original + ")"
	}})
	require.Error(t, seen)
	assert.Equal(t, `<p>ERR(${missing})</p>`, dom.String(root2))
}

func TestResolve_ShadowAndUnhide(t *testing.T) {
	e, root, model := setup(t,
		`<div hidden><template shadowrootmode="open"><b>${name}</b></template><i>${name}</i></div>`,
		map[string]any{"name": "ada"},
	)
	host := root.Children[0]
	e.Resolve(host, model, Options{Unhide: true})

	assert.Equal(t, "ada", host.Shadow.Text())
	assert.Equal(t, `<div><template shadowrootmode="open"><b>ada</b></template><i>ada</i></div>`, dom.String(root))
}

func TestResolve_UnhideKeepsFalseCondition(t *testing.T) {
	e, root, model := setup(t, `<div :if="false" hidden><b>${msg}</b></div>`, map[string]any{"msg": "hi"})
	div := root.Children[0]
	e.Resolve(div, model, Options{Unhide: true})

	assert.True(t, div.Hidden, "unhide does not override a false condition")
	assert.Equal(t, "${msg}", div.Text())
	assert.Equal(t, `<div :if="false" hidden=""><b>${msg}</b></div>`, dom.String(root))
}

func TestResolve_PlainScriptAttributes(t *testing.T) {
	e, root, model := setup(t,
		`<script src="${base}/app.js"></script><script type="module">let a = "${b}";</script>`,
		map[string]any{"base": "/static"},
	)
	e.Resolve(root, model, Options{})

	assert.Equal(t, `<script src="/static/app.js"></script><script type="module">let a = "${b}";</script>`, dom.String(root))
	require.NoError(t, model.Set("base", "/cdn"))
	v, _ := root.Children[0].Attr("src")
	assert.Equal(t, "/cdn/app.js", v)
}

func TestResolve_ComponentAttributesBindChildren(t *testing.T) {
	e, root, model := setup(t,
		`<user-card name="${user}" count="3" :if="${true}"><p>${name}:${count}</p></user-card><p>${name}</p>`,
		map[string]any{"user": "ada", "name": "model"},
	)
	e.Resolve(root, model, Options{})

	card := root.Children[0]
	assert.Equal(t, "ada:3", card.Children[0].Text())
	assert.Equal(t, "model", root.Children[1].Text(), "attributes bind only inside the component")

	require.NoError(t, model.Set("user", "grace"))
	assert.Equal(t, "grace:3", card.Children[0].Text())
}

func TestResolve_ModelSetOnce(t *testing.T) {
	e, root, model := setup(t, `<p>${x}</p>`, map[string]any{"x": 1})
	e.Resolve(root, model, Options{})
	e.Resolve(root, map[string]any{"x": 2}, Options{})

	m, ok := root.Model()
	require.True(t, ok)
	assert.Same(t, model, m)
}

func TestResolve_DetachedNodesAreSkipped(t *testing.T) {
	e, root, model := setup(t, `<p>${x}</p>`, map[string]any{"x": 1})
	e.Resolve(root, model, Options{})
	p := root.Children[0]
	p.Detach()

	require.NoError(t, model.Set("x", 2))
	assert.Equal(t, "1", p.Text())
}

func TestScript_CompileAndEval(t *testing.T) {
	e, root, model := setup(t,
		`<script type="application/tlx">join("", [for x in items : <i>${x}</i>]);</script>`,
		map[string]any{"items": []any{"a", "b"}},
	)
	e.Resolve(root, model, Options{})

	script := root.Children[0]
	typ, _ := script.Attr("type")
	id, _ := script.Attr("id")
	assert.Equal(t, CompiledScriptType, typ)
	assert.Equal(t, "script-1", id)
	assert.Equal(t, `join("", [for x in items : "<i>${x}</i>"])`, script.Text())
	assert.Equal(t, `join("", [for x in items : <i>${x}</i>]);`, script.Template)

	v, err := e.EvalScript(script)
	require.NoError(t, err)
	s, err := expr.ToString(v)
	require.NoError(t, err)
	assert.Equal(t, "<i>a</i><i>b</i>", s)

	e.Resolve(root, model, Options{})
	id2, _ := script.Attr("id")
	assert.Equal(t, id, id2, "ids are stable across passes")
}

func TestEvalScript_RejectsOtherNodes(t *testing.T) {
	e, root, _ := setup(t, `<p>x</p><script>1</script>`, map[string]any{})
	_, err := e.EvalScript(root.Children[0])
	assert.True(t, errors.Is(err, ErrNotScript))
	_, err = e.EvalScript(root.Children[1])
	assert.ErrorIs(t, err, ErrNotScript)
}

func TestEngine_ReresolveIgnoresForeignConsumers(t *testing.T) {
	e, _, model := setup(t, ``, map[string]any{})
	assert.NotPanics(t, func() { e.Reresolve(foreign{}, model) })
}

type foreign struct{}

func (foreign) Connected() bool { return true }
