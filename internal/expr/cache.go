package expr

import (
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// Mode selects how source text is parsed.
type Mode int

const (
	// TemplateMode parses text with embedded `${...}` interpolations.
	TemplateMode Mode = iota
	// ExpressionMode parses a bare expression.
	ExpressionMode
)

// TraversalKey returns a canonical string for a traversal, e.g. user.name[0].
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

type cacheKey struct {
	mode Mode
	src  string
}

// parsed is one cached parse result.
type parsed struct {
	expr  hclsyntax.Expression
	diags hcl.Diagnostics

	refsOnce   sync.Once
	references []string
	roots      map[string][]hcl.Traversal
	rootOrder  []string
}

// Cache holds parsed expressions keyed by source. It is safe for concurrent
// use; a source is parsed at most once per mode.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*parsed
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*parsed)}
}

func (c *Cache) get(mode Mode, src string) *parsed {
	key := cacheKey{mode: mode, src: src}
	c.mu.RLock()
	p, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return p
	}

	p = &parsed{}
	start := hcl.InitialPos
	if mode == TemplateMode {
		p.expr, p.diags = hclsyntax.ParseTemplate([]byte(src), "template", start)
	} else {
		p.expr, p.diags = hclsyntax.ParseExpression([]byte(src), "expression", start)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = p
	return p
}

// Len returns the number of cached parse results.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// analyze groups the variables of the expression by root name, keeping the
// remaining steps of each traversal.
func (p *parsed) analyze() {
	p.refsOnce.Do(func() {
		p.roots = make(map[string][]hcl.Traversal)
		if p.expr == nil {
			return
		}
		seen := make(map[string]struct{})
		for _, t := range p.expr.Variables() {
			key := TraversalKey(t)
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				p.references = append(p.references, key)
			}
			name := t.RootName()
			if _, ok := p.roots[name]; !ok {
				p.rootOrder = append(p.rootOrder, name)
			}
			p.roots[name] = append(p.roots[name], t[1:])
		}
		sort.Strings(p.references)
	})
}
