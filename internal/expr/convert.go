package expr

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/vk/tlxgo/internal/reactor"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ToCty converts a Go value into a cty.Value. Reactive stores are read through
// their tracked accessors, so converting one registers the active reader for
// every key it visits.
func ToCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return x, nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int32:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint:
		return cty.NumberUIntVal(uint64(x)), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float32:
		return cty.NumberFloatVal(float64(x)), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case *big.Float:
		return cty.NumberVal(x), nil
	case *reactor.Store:
		return storeToCty(x)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make(map[string]cty.Value, len(x))
		for _, k := range keys {
			cv, err := ToCty(x[k])
			if err != nil {
				return cty.NilVal, fmt.Errorf("in attribute %q: %w", k, err)
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		elems := make([]cty.Value, 0, len(x))
		for i, e := range x {
			cv, err := ToCty(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("at index %d: %w", i, err)
			}
			elems = append(elems, cv)
		}
		return cty.TupleVal(elems), nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type for %T: %w", v, err)
	}
	return gocty.ToCtyValue(v, ty)
}

func storeToCty(s *reactor.Store) (cty.Value, error) {
	if s.Kind() == reactor.SeqKind {
		n := s.Len()
		elems := make([]cty.Value, 0, n)
		for i := 0; i < n; i++ {
			e, _ := s.Index(i)
			cv, err := ToCty(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("at index %d: %w", i, err)
			}
			elems = append(elems, cv)
		}
		return cty.TupleVal(elems), nil
	}

	attrs := make(map[string]cty.Value)
	for _, k := range s.Keys() {
		e, ok := s.Get(k)
		if !ok {
			continue
		}
		cv, err := ToCty(e)
		if err != nil {
			return cty.NilVal, fmt.Errorf("in attribute %q: %w", k, err)
		}
		attrs[k] = cv
	}
	return cty.ObjectVal(attrs), nil
}

// FromCty converts a cty.Value into plain Go data: strings, float64 numbers,
// bools, []any and map[string]any. Null and unknown values become nil.
func FromCty(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, e := it.Element()
			native, err := FromCty(e)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			k, e := it.Element()
			native, err := FromCty(e)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}
			out[k.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty type %s", ty.FriendlyName())
}

// ToString renders a value as text: strings verbatim, numbers and bools in
// their literal form, null as the empty string and collections as JSON.
func ToString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("value is not known")
	}
	ty := v.Type()
	if ty == cty.String {
		return v.AsString(), nil
	}
	if ty.IsPrimitiveType() {
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return "", err
		}
		return s.AsString(), nil
	}
	buf, err := ctyjson.Marshal(v, ty)
	if err != nil {
		return "", fmt.Errorf("render %s as JSON: %w", ty.FriendlyName(), err)
	}
	return string(buf), nil
}
