// Package template resolves interpolations and directives in a dom tree
// against a reactive model. Every read made while resolving a node is
// attributed to that node, so later model changes re-resolve exactly the nodes
// that read the changed key.
package template

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/tlxgo/internal/coerce"
	"github.com/vk/tlxgo/internal/dom"
	"github.com/vk/tlxgo/internal/expr"
	"github.com/vk/tlxgo/internal/reactor"
	"github.com/vk/tlxgo/internal/track"
	"github.com/zclconf/go-cty/cty"
)

const (
	// ScriptType marks a script written in the markup-embedding dialect.
	ScriptType = "application/tlx"
	// CompiledScriptType marks a script rewritten to a plain expression.
	CompiledScriptType = "application/x-hcl"
)

// ErrNotScript is returned by EvalScript for anything but a compiled script.
var ErrNotScript = errors.New("node is not a compiled script")

// ErrorHandler decides the text of a node or attribute whose source failed to
// evaluate.
type ErrorHandler func(n *dom.Node, original string, err error) string

// KeepOriginal is the default ErrorHandler. It leaves the source untouched.
func KeepOriginal(_ *dom.Node, original string, _ error) string {
	return original
}

// Options controls one resolution pass.
type Options struct {
	// Unhide removes the hidden attribute of the resolved node. A false :if
	// keeps the node hidden.
	Unhide bool
	// Extras are bindings that shadow the model.
	Extras map[string]any
	// OnError replaces failed sources. Defaults to KeepOriginal.
	OnError ErrorHandler
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracker shares an existing active-reader context.
func WithTracker(t *track.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithIDFunc replaces the generator of script ids.
func WithIDFunc(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// Engine resolves dom trees. It implements reactor.Resolver for the stores it
// wraps.
type Engine struct {
	tracker *track.Tracker
	eval    *expr.Evaluator
	logger  *slog.Logger
	newID   func() string
}

// New returns an engine with its own tracker.
func New(opts ...Option) *Engine {
	e := &Engine{
		tracker: track.New(),
		eval:    expr.NewEvaluator(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tracker returns the active-reader context used during resolution.
func (e *Engine) Tracker() *track.Tracker { return e.tracker }

// Wrap returns data as a reactive model bound to this engine.
func (e *Engine) Wrap(data any) any {
	return reactor.Wrap(data,
		reactor.WithTracker(e.tracker),
		reactor.WithResolver(e),
		reactor.WithLogger(e.logger),
	)
}

// Reresolve resolves a dependent again with the model and extras of its last
// resolution.
func (e *Engine) Reresolve(c reactor.Consumer, root *reactor.Store) {
	n, ok := c.(*dom.Node)
	if !ok {
		return
	}
	model, ok := n.Model()
	if !ok {
		model = root
	}
	e.logger.Debug("Re-resolving dependent.", "kind", n.Kind, "tag", n.Tag)
	e.Resolve(n, model, Options{Extras: n.Extras()})
}

// Resolve evaluates every interpolation and directive in the tree rooted at n
// against model and opts.Extras, mutating the tree in place.
func (e *Engine) Resolve(n *dom.Node, model any, opts Options) *dom.Node {
	if opts.OnError == nil {
		opts.OnError = KeepOriginal
	}
	n.SetModel(model)
	n.SetExtras(opts.Extras)
	scopes := []expr.Scope{expr.Vars(opts.Extras), expr.ScopeOf(model)}

	switch n.Kind {
	case dom.TextNode:
		e.resolveText(n, scopes, opts)
	case dom.ElementNode, dom.FragmentNode, dom.DocumentNode:
		if n.IsScript() {
			// Script bodies are never interpolated: tlx scripts are compiled,
			// anything else only has its attributes resolved.
			if typ, _ := n.Attr("type"); typ == ScriptType {
				e.compileScript(n)
			} else if typ != CompiledScriptType {
				e.resolveAttrs(n, scopes, opts)
			}
			break
		}
		if n.Kind == dom.ElementNode && !e.resolveAttrs(n, scopes, opts) {
			break
		}
		inner := Options{Extras: opts.Extras, OnError: opts.OnError}
		if isComponent(n) {
			inner.Extras = componentExtras(n, opts.Extras)
		}
		e.resolveChildren(n, model, inner)
		if n.Shadow != nil {
			e.Resolve(n.Shadow, model, inner)
		}
	}

	if opts.Unhide {
		n.RemoveAttr("hidden")
	}
	return n
}

// render evaluates src for n with n as the active reader.
func (e *Engine) render(n *dom.Node, src string, scopes []expr.Scope) (string, error) {
	var out string
	var err error
	e.tracker.Track(n, func() {
		out, err = e.eval.Render(src, scopes...)
	})
	return out, err
}

func (e *Engine) resolveText(n *dom.Node, scopes []expr.Scope, opts Options) {
	if n.Template == "" && strings.Contains(n.Data, "${") {
		n.Template = n.Data
	}
	if n.Template == "" {
		return
	}
	out, err := e.render(n, n.Template, scopes)
	if err != nil {
		e.logger.Debug("Text interpolation failed.", "template", n.Template, "error", err)
		n.Data = opts.OnError(n, n.Template, err)
		return
	}
	n.Data = out
}

// resolveAttrs resolves every attribute and reports whether the element is
// visible.
func (e *Engine) resolveAttrs(n *dom.Node, scopes []expr.Scope, opts Options) bool {
	for i := range n.Attrs {
		a := &n.Attrs[i]
		if a.Template == "" && strings.Contains(a.Value, "${") {
			a.Template = a.Value
		}
		if a.Template != "" {
			out, err := e.render(n, a.Template, scopes)
			if err != nil {
				e.logger.Debug("Attribute interpolation failed.", "attr", a.Name, "template", a.Template, "error", err)
				out = opts.OnError(n, a.Template, err)
			}
			a.Value = out
		}
		if a.Name == "value" {
			n.Value = coerce.Coerce(a.Value)
		}
	}

	if _, ok := n.Attr(IfAttr); ok {
		n.Hidden = Hidden(n.Attrs)
		if n.Hidden {
			e.logger.Debug("Element hidden by condition.", "tag", n.Tag)
			return false
		}
	}
	return true
}

func (e *Engine) resolveChildren(n *dom.Node, model any, opts Options) {
	child := Options{Extras: opts.Extras, OnError: opts.OnError}

	if n.Kind == dom.ElementNode {
		it, err := ParseIteration(n.Attrs)
		if err != nil {
			e.logger.Warn("Ignoring iteration directive.", "tag", n.Tag, "error", err)
		}
		if it != nil {
			e.expand(n, it, model, child)
			return
		}
	}

	for _, c := range append([]*dom.Node(nil), n.Children...) {
		e.Resolve(c, model, child)
	}
}

// isComponent reports whether n is a custom element, whose children and
// shadow root see its attributes as extras.
func isComponent(n *dom.Node) bool {
	return n.Kind == dom.ElementNode && strings.Contains(n.Tag, "-")
}

// componentExtras returns extras with the resolved, coerced attributes of the
// component n added on top. Directive attributes are left out.
func componentExtras(n *dom.Node, extras map[string]any) map[string]any {
	attrs := dom.Attributes(n, func(name string) bool {
		return !strings.HasPrefix(name, ":")
	})
	out := make(map[string]any, len(extras)+len(attrs))
	maps.Copy(out, extras)
	maps.Copy(out, attrs)
	return out
}

// expand replaces the children of n with one resolved copy of its original
// children per iteration step.
func (e *Engine) expand(n *dom.Node, it *Iteration, model any, opts Options) {
	steps, err := it.Steps()
	if err != nil {
		e.logger.Warn("Ignoring iteration directive.", "tag", n.Tag, "error", err)
		return
	}
	if n.Snapshot == nil {
		n.Snapshot = make([]*dom.Node, 0, len(n.Children))
		for _, c := range n.Children {
			n.Snapshot = append(n.Snapshot, c.Clone())
		}
	}
	n.RemoveChildren()

	for i, step := range steps {
		extras := make(map[string]any, len(opts.Extras)+3)
		maps.Copy(extras, opts.Extras)
		extras[it.Params[0]] = step
		extras[it.Params[1]] = i
		extras[it.Params[2]] = steps

		for _, tmpl := range n.Snapshot {
			c := tmpl.Clone()
			n.AppendChild(c)
			e.Resolve(c, model, Options{Extras: extras, OnError: opts.OnError})
		}
	}
	e.logger.Debug("Expanded iteration.", "tag", n.Tag, "mode", it.Mode, "steps", len(steps), "children", len(n.Children))
}

// compileScript rewrites a script in the markup-embedding dialect into a plain
// expression the engine can evaluate.
func (e *Engine) compileScript(n *dom.Node) {
	if id, ok := n.Attr("id"); !ok || id == "" {
		n.SetAttr("id", e.newID())
	}
	if n.Template == "" {
		n.Template = n.Text()
	}

	compiled := expr.StripScript(expr.CompileScript("${${" + n.Template + "}}"))
	n.ReplaceChildren(dom.NewText(compiled))
	n.SetAttr("type", CompiledScriptType)
	e.logger.Debug("Compiled script.", "references", e.eval.References(expr.ExpressionMode, compiled))
}

// EvalScript evaluates a compiled script against the model and extras it was
// last resolved with.
func (e *Engine) EvalScript(n *dom.Node) (cty.Value, error) {
	if typ, _ := n.Attr("type"); !n.IsScript() || typ != CompiledScriptType {
		return cty.NilVal, ErrNotScript
	}
	model, _ := n.Model()
	scopes := []expr.Scope{expr.Vars(n.Extras()), expr.ScopeOf(model)}

	var v cty.Value
	var err error
	e.tracker.Track(n, func() {
		v, err = e.eval.Expression(n.Text(), scopes...)
	})
	if err != nil {
		id, _ := n.Attr("id")
		return cty.NilVal, fmt.Errorf("script %s: %w", id, err)
	}
	return v, nil
}
