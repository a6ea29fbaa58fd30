// Package dom is the mutable markup tree the template engine resolves in
// place. Nodes are reactive consumers: they report liveness through their
// root's mount state and can carry a render hook and a value sink.
package dom

import (
	"strings"

	"github.com/vk/tlxgo/internal/coerce"
	"github.com/vk/tlxgo/internal/reactor"
)

// Kind is the type of a node.
type Kind int

const (
	FragmentNode Kind = iota
	DocumentNode
	ElementNode
	TextNode
	CommentNode
	DoctypeNode
)

// Attr is one attribute. Template holds the unresolved source of Value once
// the attribute has been resolved.
type Attr struct {
	Name     string
	Value    string
	Template string
}

// sinkTags are the elements whose value follows the model key named by their
// name attribute.
var sinkTags = map[string]bool{
	"input": true, "select": true, "textarea": true, "option": true,
	"button": true, "output": true, "meter": true, "progress": true,
}

// Node is one node of a template tree.
type Node struct {
	Kind Kind
	// Tag is the lower-case element name.
	Tag string
	// Data is the text of text, comment and doctype nodes.
	Data string
	// Template is the unresolved source of Data once resolved.
	Template string

	Attrs    []Attr
	Children []*Node
	Parent   *Node
	// Shadow is an attached sub-tree resolved with the host's model.
	Shadow *Node
	// Snapshot holds clones of the original children of an iterating node.
	Snapshot []*Node

	// Hidden is set while an :if condition is false and renders as the
	// hidden attribute.
	Hidden bool
	// Value is the live value of form-like elements.
	Value any
	// OnRender runs when a dependency of the node changes.
	OnRender func(*Node)

	mounted  bool
	model    any
	hasModel bool
	extras   map[string]any
	state    reactor.RenderState
}

// NewElement returns a detached element.
func NewElement(tag string, attrs ...Attr) *Node {
	return &Node{Kind: ElementNode, Tag: strings.ToLower(tag), Attrs: attrs}
}

// NewText returns a detached text node.
func NewText(text string) *Node {
	return &Node{Kind: TextNode, Data: text}
}

// NewFragment returns an empty fragment holding children.
func NewFragment(children ...*Node) *Node {
	f := &Node{Kind: FragmentNode}
	for _, c := range children {
		f.AppendChild(c)
	}
	return f
}

// Mount marks the tree rooted at n as live.
func (n *Node) Mount() { n.Root().mounted = true }

// Unmount marks the tree rooted at n as detached.
func (n *Node) Unmount() { n.Root().mounted = false }

// Root returns the top-most ancestor of n.
func (n *Node) Root() *Node {
	r := n
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// Connected reports whether n belongs to a mounted tree.
func (n *Node) Connected() bool {
	return n.Root().mounted
}

// BeginRender moves the node to Rendering if it has a hook and is Idle.
func (n *Node) BeginRender() bool {
	if n.OnRender == nil || n.state == reactor.Rendering {
		return false
	}
	n.state = reactor.Rendering
	return true
}

// EndRender returns the node to Idle.
func (n *Node) EndRender() { n.state = reactor.Idle }

// Render runs the render hook.
func (n *Node) Render() {
	if n.OnRender != nil {
		n.OnRender(n)
	}
}

// RenderState reports whether the render hook is running.
func (n *Node) RenderState() reactor.RenderState { return n.state }

// SupportsDirectValueSink reports whether n is a named form-like element.
func (n *Node) SupportsDirectValueSink() bool {
	if n.Kind != ElementNode || !sinkTags[n.Tag] {
		return false
	}
	name, ok := n.Attr("name")
	return ok && name != ""
}

// SinkName returns the name attribute.
func (n *Node) SinkName() string {
	name, _ := n.Attr("name")
	return name
}

// SetValue assigns the live value and reflects it into the markup.
func (n *Node) SetValue(v any) {
	n.Value = v
	text := coerce.String(v)
	if n.Tag == "textarea" {
		// Keep the body node so its template stays bound.
		if len(n.Children) == 1 && n.Children[0].Kind == TextNode {
			n.Children[0].Data = text
			return
		}
		n.ReplaceChildren(NewText(text))
		return
	}
	n.SetAttr("value", text)
}

// SetModel records the model n was first resolved against. Later calls are
// ignored. It reports whether the model was recorded.
func (n *Node) SetModel(model any) bool {
	if n.hasModel {
		return false
	}
	n.model = model
	n.hasModel = true
	return true
}

// Model returns the model n was first resolved against.
func (n *Node) Model() (any, bool) { return n.model, n.hasModel }

// SetExtras remembers the extra bindings n was last resolved with.
func (n *Node) SetExtras(extras map[string]any) { n.extras = extras }

// Extras returns the extra bindings n was last resolved with.
func (n *Node) Extras() map[string]any { return n.extras }

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	if a := n.attr(name); a != nil {
		return a.Value, true
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (n *Node) HasAttr(name string) bool {
	return n.attr(name) != nil
}

func (n *Node) attr(name string) *Attr {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			return &n.Attrs[i]
		}
	}
	return nil
}

// SetAttr sets or appends an attribute.
func (n *Node) SetAttr(name, value string) {
	if a := n.attr(name); a != nil {
		a.Value = value
		return
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// AppendChild adds c as the last child of n, detaching it from any previous
// parent.
func (n *Node) AppendChild(c *Node) {
	c.Detach()
	c.Parent = n
	n.Children = append(n.Children, c)
}

// InsertAfter inserts c as the sibling following ref, which must be a child
// of n. A nil or foreign ref appends c.
func (n *Node) InsertAfter(c, ref *Node) {
	c.Detach()
	for i, x := range n.Children {
		if x == ref {
			c.Parent = n
			n.Children = append(n.Children[:i+1], append([]*Node{c}, n.Children[i+1:]...)...)
			return
		}
	}
	n.AppendChild(c)
}

// NextSibling returns the child of n's parent that follows n.
func (n *Node) NextSibling() *Node {
	if n.Parent == nil {
		return nil
	}
	for i, x := range n.Parent.Children {
		if x == n && i+1 < len(n.Parent.Children) {
			return n.Parent.Children[i+1]
		}
	}
	return nil
}

// Detach removes n from its parent.
func (n *Node) Detach() {
	p := n.Parent
	if p == nil {
		return
	}
	if p.Shadow == n {
		p.Shadow = nil
		n.Parent = nil
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// RemoveChildren detaches every child of n.
func (n *Node) RemoveChildren() {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = nil
}

// ReplaceChildren replaces the children of n. The given nodes may currently be
// children of another node.
func (n *Node) ReplaceChildren(children ...*Node) {
	children = append([]*Node(nil), children...)
	n.RemoveChildren()
	for _, c := range children {
		n.AppendChild(c)
	}
}

// Clone returns a deep copy of the markup of n: kind, tag, text, attributes,
// children and shadow. Runtime state such as the model, extras, hooks and
// mount state is not copied.
func (n *Node) Clone() *Node {
	c := &Node{
		Kind:     n.Kind,
		Tag:      n.Tag,
		Data:     n.Data,
		Template: n.Template,
		Hidden:   n.Hidden,
		Value:    n.Value,
	}
	if n.Attrs != nil {
		c.Attrs = append([]Attr(nil), n.Attrs...)
	}
	for _, child := range n.Children {
		c.AppendChild(child.Clone())
	}
	if n.Shadow != nil {
		c.AttachShadow(n.Shadow.Clone())
	}
	return c
}

// AttachShadow sets f as the shadow sub-tree of n. The shadow shares the
// liveness of its host.
func (n *Node) AttachShadow(f *Node) {
	f.Detach()
	f.Parent = n
	n.Shadow = f
}

// IsScript reports whether n is a script element.
func (n *Node) IsScript() bool {
	return n.Kind == ElementNode && n.Tag == "script"
}

// Text returns the concatenated text of n and its descendants.
func (n *Node) Text() string {
	if n.Kind == TextNode {
		return n.Data
	}
	var b strings.Builder
	for _, c := range n.Children {
		if c.Kind == TextNode || c.Kind == ElementNode || c.Kind == FragmentNode {
			b.WriteString(c.Text())
		}
	}
	return b.String()
}

// Walk calls fn for n and every descendant in document order, stopping a
// branch when fn returns false. Shadow trees are not visited.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range append([]*Node(nil), n.Children...) {
		c.Walk(fn)
	}
}

// Find returns the first node in document order for which match is true.
func (n *Node) Find(match func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(x *Node) bool {
		if found != nil {
			return false
		}
		if match(x) {
			found = x
			return false
		}
		return true
	})
	return found
}

// ByID returns the element with the given id attribute.
func (n *Node) ByID(id string) *Node {
	return n.Find(func(x *Node) bool {
		v, ok := x.Attr("id")
		return x.Kind == ElementNode && ok && v == id
	})
}

// ByTag returns every element with the given tag in document order.
func (n *Node) ByTag(tag string) []*Node {
	var out []*Node
	n.Walk(func(x *Node) bool {
		if x.Kind == ElementNode && x.Tag == tag {
			out = append(out, x)
		}
		return true
	})
	return out
}
