package expr

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Evaluator parses, caches and evaluates templates and expressions.
type Evaluator struct {
	cache *Cache
	funcs map[string]function.Function
}

// NewEvaluator returns an evaluator with the standard function table.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: NewCache(), funcs: Functions()}
}

// Functions returns the functions callable from expressions.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"abs":        stdlib.AbsoluteFunc,
		"ceil":       stdlib.CeilFunc,
		"chomp":      stdlib.ChompFunc,
		"coalesce":   stdlib.CoalesceFunc,
		"compact":    stdlib.CompactFunc,
		"concat":     stdlib.ConcatFunc,
		"contains":   stdlib.ContainsFunc,
		"distinct":   stdlib.DistinctFunc,
		"element":    stdlib.ElementFunc,
		"flatten":    stdlib.FlattenFunc,
		"floor":      stdlib.FloorFunc,
		"format":     stdlib.FormatFunc,
		"formatlist": stdlib.FormatListFunc,
		"indent":     stdlib.IndentFunc,
		"join":       stdlib.JoinFunc,
		"jsondecode": stdlib.JSONDecodeFunc,
		"jsonencode": stdlib.JSONEncodeFunc,
		"keys":       stdlib.KeysFunc,
		"length":     stdlib.LengthFunc,
		"lookup":     stdlib.LookupFunc,
		"lower":      stdlib.LowerFunc,
		"max":        stdlib.MaxFunc,
		"merge":      stdlib.MergeFunc,
		"min":        stdlib.MinFunc,
		"range":      stdlib.RangeFunc,
		"regex":      stdlib.RegexFunc,
		"replace":    stdlib.ReplaceFunc,
		"reverse":    stdlib.ReverseListFunc,
		"slice":      stdlib.SliceFunc,
		"sort":       stdlib.SortFunc,
		"split":      stdlib.SplitFunc,
		"strlen":     stdlib.StrlenFunc,
		"substr":     stdlib.SubstrFunc,
		"title":      stdlib.TitleFunc,
		"trim":       stdlib.TrimFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"upper":      stdlib.UpperFunc,
		"values":     stdlib.ValuesFunc,
		"zipmap":     stdlib.ZipmapFunc,
	}
}

// Template evaluates text containing `${...}` interpolations.
func (e *Evaluator) Template(src string, scopes ...Scope) (cty.Value, error) {
	return e.eval(TemplateMode, src, scopes)
}

// Expression evaluates a bare expression.
func (e *Evaluator) Expression(src string, scopes ...Scope) (cty.Value, error) {
	return e.eval(ExpressionMode, src, scopes)
}

// Render evaluates a template and renders the result with ToString.
func (e *Evaluator) Render(src string, scopes ...Scope) (string, error) {
	v, err := e.Template(src, scopes...)
	if err != nil {
		return "", err
	}
	return ToString(v)
}

// References returns the canonical keys of every variable traversal in src.
func (e *Evaluator) References(mode Mode, src string) []string {
	p := e.cache.get(mode, src)
	p.analyze()
	return p.references
}

func (e *Evaluator) eval(mode Mode, src string, scopes []Scope) (cty.Value, error) {
	p := e.cache.get(mode, src)
	if p.diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("parse %q: %w", src, p.diags)
	}
	p.analyze()

	vars := make(map[string]cty.Value, len(p.rootOrder))
	for _, name := range p.rootOrder {
		v, ok := lookup(scopes, name)
		if !ok {
			continue
		}
		cv, err := project(v, p.roots[name])
		if err != nil {
			return cty.NilVal, fmt.Errorf("convert %q: %w", name, err)
		}
		vars[name] = cv
	}

	ctx := &hcl.EvalContext{Variables: vars, Functions: e.funcs}
	val, diags := p.expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluate %q: %w", src, diags)
	}
	return val, nil
}
