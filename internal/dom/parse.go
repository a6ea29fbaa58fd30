package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// shadowModeAttr marks a template element as the declarative shadow root of
// its parent.
const shadowModeAttr = "shadowrootmode"

// Parse reads a complete HTML document.
func Parse(r io.Reader) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return fromHTML(doc), nil
}

// ParseFragment reads markup as the contents of a body element and returns it
// as a fragment.
func ParseFragment(markup string) (*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	f := &Node{Kind: FragmentNode}
	for _, hn := range nodes {
		if c := fromHTML(hn); c != nil {
			f.AppendChild(c)
		}
	}
	return f, nil
}

func fromHTML(hn *html.Node) *Node {
	n := &Node{}
	switch hn.Type {
	case html.DocumentNode:
		n.Kind = DocumentNode
	case html.ElementNode:
		n.Kind = ElementNode
		n.Tag = hn.Data
		for _, a := range hn.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			n.Attrs = append(n.Attrs, Attr{Name: name, Value: a.Val})
		}
	case html.TextNode:
		n.Kind = TextNode
		n.Data = hn.Data
	case html.CommentNode:
		n.Kind = CommentNode
		n.Data = hn.Data
	case html.DoctypeNode:
		n.Kind = DoctypeNode
		n.Data = hn.Data
	default:
		return nil
	}

	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		child := fromHTML(c)
		if child == nil {
			continue
		}
		if n.Kind == ElementNode && n.Shadow == nil && child.Tag == "template" && child.HasAttr(shadowModeAttr) {
			child.Kind = FragmentNode
			child.Tag = ""
			mode, _ := child.Attr(shadowModeAttr)
			child.Attrs = []Attr{{Name: shadowModeAttr, Value: mode}}
			n.AttachShadow(child)
			continue
		}
		n.AppendChild(child)
	}
	return n
}

// Render writes n as HTML. Fragments render their children in order.
func Render(w io.Writer, n *Node) error {
	if n.Kind == FragmentNode {
		for _, c := range n.Children {
			if err := Render(w, c); err != nil {
				return err
			}
		}
		return nil
	}
	return html.Render(w, toHTML(n))
}

// String renders n as HTML, returning an empty string on failure.
func String(n *Node) string {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func toHTML(n *Node) *html.Node {
	hn := &html.Node{}
	switch n.Kind {
	case DocumentNode:
		hn.Type = html.DocumentNode
	case FragmentNode:
		// Only reached for shadow roots, which render as template elements.
		hn.Type = html.ElementNode
		hn.Data = "template"
		hn.DataAtom = atom.Template
	case ElementNode:
		hn.Type = html.ElementNode
		hn.Data = n.Tag
		hn.DataAtom = atom.Lookup([]byte(n.Tag))
	case TextNode:
		hn.Type = html.TextNode
		hn.Data = n.Data
	case CommentNode:
		hn.Type = html.CommentNode
		hn.Data = n.Data
	case DoctypeNode:
		hn.Type = html.DoctypeNode
		hn.Data = n.Data
	}

	for _, a := range n.Attrs {
		hn.Attr = append(hn.Attr, html.Attribute{Key: a.Name, Val: a.Value})
	}
	if n.Hidden && !n.HasAttr("hidden") {
		hn.Attr = append(hn.Attr, html.Attribute{Key: "hidden"})
	}
	if n.Shadow != nil {
		hn.AppendChild(toHTML(n.Shadow))
	}
	for _, c := range n.Children {
		if c.Kind == FragmentNode {
			for _, gc := range c.Children {
				hn.AppendChild(toHTML(gc))
			}
			continue
		}
		hn.AppendChild(toHTML(c))
	}
	return hn
}
