package dom

import (
	"github.com/vk/tlxgo/internal/coerce"
)

// Attributes returns the attributes of n accepted by filter as coerced values.
// An empty attribute reads as true, and title is always present, defaulting
// to the empty string. A nil filter accepts every attribute.
func Attributes(n *Node, filter func(name string) bool) map[string]any {
	out := map[string]any{"title": ""}
	for _, a := range n.Attrs {
		if filter != nil && !filter(a.Name) {
			continue
		}
		if a.Value == "" {
			out[a.Name] = true
			continue
		}
		out[a.Name] = coerce.Coerce(a.Value)
	}
	return out
}

// ShowError replaces the content of n with an error element carrying the
// message of err.
func ShowError(n *Node, err error) {
	if err == nil {
		return
	}
	el := NewElement("error")
	el.AppendChild(NewText(err.Error()))
	n.ReplaceChildren(el)
}
