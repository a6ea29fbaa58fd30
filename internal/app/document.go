package app

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/vk/tlxgo/internal/content"
	"github.com/vk/tlxgo/internal/dom"
	"github.com/vk/tlxgo/internal/expr"
	"github.com/vk/tlxgo/internal/reactor"
	"github.com/vk/tlxgo/internal/template"
)

// contentAttr marks an element whose body is structured content. With a
// value, the parsed data is stored in the model under that key; without one,
// rendered markup replaces the body.
const contentAttr = ":content"

var documentPattern = regexp.MustCompile(`(?i)^\s*(<!doctype|<html)`)

// parseTemplate reads the template as a full document or a fragment.
func parseTemplate(path string) (*dom.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	if documentPattern.Match(raw) {
		return dom.Parse(bytes.NewReader(raw))
	}
	return dom.ParseFragment(string(raw))
}

// load reads the template and model and resolves the document. It must be
// called with a.mu held.
func (a *App) load() error {
	doc, err := parseTemplate(a.config.TemplatePath)
	if err != nil {
		return err
	}

	if a.model == nil {
		data, err := readModel(a.config.ModelPath)
		if err != nil {
			return err
		}
		model, ok := a.engine.Wrap(data).(*reactor.Store)
		if !ok {
			return fmt.Errorf("model %s cannot be wrapped", a.config.ModelPath)
		}
		a.model = model
		if err := a.applySets(); err != nil {
			return err
		}
	}

	if a.doc != nil {
		a.doc.Unmount()
	}
	a.doc = doc
	a.doc.Mount()

	a.loadContent()
	a.engine.Resolve(a.doc, a.model, template.Options{Unhide: true})
	a.bindScripts()
	a.logger.Info("Template resolved.", "template", a.config.TemplatePath, "model_keys", len(a.model.Keys()))
	return nil
}

// loadContent parses every content element of the document.
func (a *App) loadContent() {
	var nodes []*dom.Node
	a.doc.Walk(func(n *dom.Node) bool {
		if n.Kind == dom.ElementNode && n.HasAttr(contentAttr) {
			nodes = append(nodes, n)
			return false
		}
		return true
	})

	for _, n := range nodes {
		cfg := &content.Config{}
		data := content.FromNode(n, cfg)
		if cfg.Err != nil {
			a.logger.Warn("Content element failed to parse.", "tag", n.Tag, "error", cfg.Err)
			dom.ShowError(n, cfg.Err)
			continue
		}

		if key, _ := n.Attr(contentAttr); key != "" {
			if err := setPath(a.model, key, data); err != nil {
				dom.ShowError(n, err)
			}
			continue
		}

		markup, _ := data.(string)
		if n.IsScript() {
			continue
		}
		frag, err := dom.ParseFragment(markup)
		if err != nil {
			dom.ShowError(n, err)
			continue
		}
		n.ReplaceChildren(frag.Children...)
	}
}

// bindScripts evaluates every compiled script into the output element that
// follows it, and re-evaluates it whenever a value it read changes.
func (a *App) bindScripts() {
	for _, n := range a.doc.ByTag("script") {
		if typ, _ := n.Attr("type"); typ != template.CompiledScriptType {
			continue
		}
		n.OnRender = a.renderScript
		a.renderScript(n)
	}
}

func (a *App) renderScript(n *dom.Node) {
	id, _ := n.Attr("id")
	out := n.NextSibling()
	if out == nil || out.Tag != "output" {
		out = dom.NewElement("output", dom.Attr{Name: "for", Value: id})
		if n.Parent != nil {
			n.Parent.InsertAfter(out, n)
		}
	}

	v, err := a.engine.EvalScript(n)
	if err != nil {
		a.logger.Warn("Script failed.", "id", id, "error", err)
		dom.ShowError(out, err)
		return
	}
	text, err := expr.ToString(v)
	if err != nil {
		dom.ShowError(out, err)
		return
	}
	frag, err := dom.ParseFragment(text)
	if err != nil {
		dom.ShowError(out, err)
		return
	}
	out.ReplaceChildren(frag.Children...)
}

// flush writes the rendered document to the configured output and publishes
// it to preview clients.
func (a *App) flush() error {
	doc := a.Document()

	if a.preview != nil {
		a.preview.Publish(doc)
	}
	if a.config.OutPath != "" {
		if err := atomic.WriteFile(a.config.OutPath, strings.NewReader(doc)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		a.logger.Debug("Output written.", "path", a.config.OutPath, "bytes", len(doc))
		return nil
	}
	_, err := fmt.Fprintln(a.outW, doc)
	return err
}
