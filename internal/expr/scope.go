package expr

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/tlxgo/internal/reactor"
	"github.com/zclconf/go-cty/cty"
)

// Scope resolves a root identifier of an expression.
type Scope interface {
	Lookup(name string) (any, bool)
}

// Vars is a plain, untracked scope.
type Vars map[string]any

func (v Vars) Lookup(name string) (any, bool) {
	val, ok := v[name]
	return val, ok
}

// StoreScope resolves identifiers as tracked reads of a reactive store.
type StoreScope struct {
	Store *reactor.Store
}

func (s StoreScope) Lookup(name string) (any, bool) {
	if s.Store == nil {
		return nil, false
	}
	return s.Store.Get(name)
}

// ScopeOf returns the scope for a model value: a StoreScope for a map store,
// Vars for a plain map, and nil for anything else.
func ScopeOf(model any) Scope {
	switch m := model.(type) {
	case *reactor.Store:
		if m.Kind() == reactor.MapKind {
			return StoreScope{Store: m}
		}
	case map[string]any:
		return Vars(m)
	case Scope:
		return m
	}
	return nil
}

// lookup finds name in the first scope that defines it.
func lookup(scopes []Scope, name string) (any, bool) {
	for _, s := range scopes {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// project converts v for use as a variable, reading through a map store only
// the attributes that paths statically traverse. Any path that uses the value
// as a whole, or indexes it dynamically, converts it entirely.
func project(v any, paths []hcl.Traversal) (cty.Value, error) {
	s, ok := v.(*reactor.Store)
	if !ok || s.Kind() != reactor.MapKind {
		return ToCty(v)
	}

	var order []string
	groups := make(map[string][]hcl.Traversal)
	for _, p := range paths {
		if len(p) == 0 {
			return ToCty(v)
		}
		key, ok := staticKey(p[0])
		if !ok {
			return ToCty(v)
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p[1:])
	}

	attrs := make(map[string]cty.Value, len(order))
	for _, key := range order {
		child, ok := s.Get(key)
		if !ok {
			continue
		}
		cv, err := project(child, groups[key])
		if err != nil {
			return cty.NilVal, err
		}
		attrs[key] = cv
	}
	return cty.ObjectVal(attrs), nil
}

func staticKey(t hcl.Traverser) (string, bool) {
	switch step := t.(type) {
	case hcl.TraverseAttr:
		return step.Name, true
	case hcl.TraverseIndex:
		if step.Key.Type() == cty.String && step.Key.IsKnown() && !step.Key.IsNull() {
			return step.Key.AsString(), true
		}
	}
	return "", false
}
