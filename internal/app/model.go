package app

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/vk/tlxgo/internal/coerce"
	"github.com/vk/tlxgo/internal/content"
	"github.com/vk/tlxgo/internal/reactor"
)

// readModel loads the model file as plain data. A missing path yields an
// empty model.
func readModel(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	cfg := &content.Config{Type: content.TypeYAML}
	data := content.Parse(string(raw), cfg)
	if cfg.Err != nil {
		return nil, fmt.Errorf("model %s: %w", path, cfg.Err)
	}
	if data == nil {
		return map[string]any{}, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("model %s: top level must be an object, got %T", path, data)
	}
	return m, nil
}

// setPath writes value at a dotted path, creating intermediate objects.
func setPath(root *reactor.Store, path string, value any) error {
	if root == nil {
		return fmt.Errorf("set %q: no model loaded", path)
	}
	parts := strings.Split(path, ".")
	cur := root
	for _, p := range parts[:len(parts)-1] {
		v, _ := cur.Get(p)
		next, ok := v.(*reactor.Store)
		if !ok {
			if err := cur.Set(p, map[string]any{}); err != nil {
				return fmt.Errorf("set %q: %w", path, err)
			}
			next = cur.Value(p).(*reactor.Store)
		}
		cur = next
	}
	if err := cur.Set(parts[len(parts)-1], value); err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	return nil
}

// applySets applies the configured key=value assignments.
func (a *App) applySets() error {
	for _, s := range a.config.Sets {
		key, value, err := splitSet(s)
		if err != nil {
			return err
		}
		if err := setPath(a.model, key, coerce.Coerce(value)); err != nil {
			return err
		}
		a.logger.Debug("Applied assignment.", "key", key)
	}
	return nil
}

// merge brings the store in line with next one key at a time, so only the
// dependents of keys that actually changed are notified.
func merge(s *reactor.Store, next any) error {
	switch n := next.(type) {
	case map[string]any:
		if s.Kind() != reactor.MapKind {
			return errReplace
		}
		for _, k := range s.Keys() {
			if _, ok := n[k]; !ok {
				if err := s.Delete(k); err != nil {
					return err
				}
			}
		}
		for k, v := range n {
			if err := mergeKey(s, k, v); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if s.Kind() != reactor.SeqKind || s.Len() != len(n) {
			return errReplace
		}
		for i, v := range n {
			if err := mergeKey(s, strconv.Itoa(i), v); err != nil {
				return err
			}
		}
		return nil
	}
	return errReplace
}

// errReplace tells mergeKey to replace a value wholesale.
var errReplace = errors.New("replace value")

func mergeKey(s *reactor.Store, key string, next any) error {
	cur, _ := s.Get(key)
	if nested, ok := cur.(*reactor.Store); ok {
		err := merge(nested, next)
		if !errors.Is(err, errReplace) {
			return err
		}
		if reflect.DeepEqual(nested.Raw(), next) {
			return nil
		}
		return s.Set(key, next)
	}
	if reflect.DeepEqual(cur, next) {
		return nil
	}
	return s.Set(key, next)
}
