package reactor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"github.com/vk/tlxgo/internal/track"
)

// MarkerKey is the virtual property that identifies a wrapped object. It always
// reads as true and can be neither set nor deleted.
const MarkerKey = "isReactor"

// lengthKey reads the length of a sequence store.
const lengthKey = "length"

// ErrReservedProperty is returned when writing or deleting MarkerKey.
var ErrReservedProperty = errors.New("cannot mutate reserved property")

// ErrNotIndex is returned when a sequence store is written at a key that is not
// one of its indices.
var ErrNotIndex = errors.New("not an index of the sequence")

// Kind distinguishes the two shapes of wrapped data.
type Kind int

const (
	// MapKind wraps a map[string]any.
	MapKind Kind = iota
	// SeqKind wraps a []any.
	SeqKind
)

// Option configures the stores created by Wrap.
type Option func(*shared)

// WithTracker sets the active-reader context consulted on every read.
func WithTracker(t *track.Tracker) Option {
	return func(s *shared) { s.tracker = t }
}

// WithResolver sets the hook used to re-resolve dependents after a change.
func WithResolver(r Resolver) Option {
	return func(s *shared) { s.resolver = r }
}

// WithLogger sets the logger for notification diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *shared) {
		if l != nil {
			s.logger = l
		}
	}
}

// shared is the state common to a root store and every nested store created
// from it.
type shared struct {
	tracker  *track.Tracker
	resolver Resolver
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[identity]*Store
}

// identity is the address of an underlying map or sequence.
type identity struct {
	kind Kind
	ptr  uintptr
	n    int
}

// Store is a reactive handle over one map or sequence.
type Store struct {
	mu   sync.Mutex
	kind Kind
	m    map[string]any
	seq  []any

	root   *Store
	shared *shared
	deps   *registry
}

// Wrap returns a reactive store over data. Data that is not a map or sequence,
// and data that is already a *Store, is returned unchanged.
func Wrap(data any, opts ...Option) any {
	if IsReactive(data) {
		return data
	}
	if _, ok := identityOf(data); !ok {
		return data
	}
	sh := &shared{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		cache:  make(map[identity]*Store),
	}
	for _, opt := range opts {
		opt(sh)
	}
	return sh.wrap(data, nil)
}

// New is Wrap for callers that know data is a map or sequence. It returns an
// error for any other input.
func New(data any, opts ...Option) (*Store, error) {
	s, ok := Wrap(data, opts...).(*Store)
	if !ok {
		return nil, fmt.Errorf("reactor: cannot wrap %T", data)
	}
	return s, nil
}

// IsReactive reports whether v is a reactive store.
func IsReactive(v any) bool {
	_, ok := v.(*Store)
	return ok
}

// wrap returns the one store for the object behind data, creating it on first
// use. root is nil when data becomes a new root.
func (sh *shared) wrap(data any, root *Store) any {
	id, ok := identityOf(data)
	if !ok {
		return data
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	// Empty sequences have no stable address, so they are never cached.
	if id.ptr != 0 {
		if s, found := sh.cache[id]; found {
			return s
		}
	}

	s := &Store{kind: id.kind, shared: sh, deps: newRegistry()}
	switch v := data.(type) {
	case map[string]any:
		s.m = v
	case []any:
		s.seq = v
	}
	s.root = root
	if root == nil {
		s.root = s
	}
	if id.ptr != 0 {
		sh.cache[id] = s
	}
	return s
}

// identityOf returns the address of a map or sequence, and false for anything
// else, including nil maps.
func identityOf(v any) (identity, bool) {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return identity{}, false
		}
		return identity{kind: MapKind, ptr: reflect.ValueOf(x).Pointer()}, true
	case []any:
		if x == nil {
			return identity{}, false
		}
		var ptr uintptr
		if len(x) > 0 {
			ptr = reflect.ValueOf(x).Pointer()
		}
		return identity{kind: SeqKind, ptr: ptr, n: len(x)}, true
	}
	return identity{}, false
}

// Kind reports whether the store wraps a map or a sequence.
func (s *Store) Kind() Kind {
	return s.kind
}

// Root returns the store the whole model was wrapped from.
func (s *Store) Root() *Store {
	return s.root
}

// Raw returns the underlying plain data.
func (s *Store) Raw() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind == SeqKind {
		return s.seq
	}
	return s.m
}

// Len returns the number of entries without tracking a read.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind == SeqKind {
		return len(s.seq)
	}
	return len(s.m)
}

// Keys returns the true underlying key set: sorted map keys, or the decimal
// indices of a sequence. Enumeration is not tracked.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kind == SeqKind {
		keys := make([]string, len(s.seq))
		for i := range s.seq {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get reads key. If a reader is active it becomes a dependent of key. Map and
// sequence values are returned as nested stores.
func (s *Store) Get(key string) (any, bool) {
	if key == MarkerKey {
		return true, true
	}
	s.track(key)

	s.mu.Lock()
	value, ok := s.lookup(key)
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.shared.wrap(value, s.root), true
}

// Value is Get without the presence flag.
func (s *Store) Value(key string) any {
	v, _ := s.Get(key)
	return v
}

// Index reads element i of a sequence store.
func (s *Store) Index(i int) (any, bool) {
	return s.Get(strconv.Itoa(i))
}

// Dependents returns the consumers registered for key, in registration order.
func (s *Store) Dependents(key string) []Consumer {
	return s.deps.dependents(key)
}

// TrackedKeys returns every key of this store that has dependents.
func (s *Store) TrackedKeys() []string {
	keys := s.deps.keys()
	sort.Strings(keys)
	return keys
}

func (s *Store) track(key string) {
	reader := s.shared.tracker.Current()
	if reader == nil {
		return
	}
	c, ok := reader.(Consumer)
	if !ok {
		return
	}
	if s.deps.add(key, c) {
		s.shared.logger.Debug("Registered dependent.", "key", key, "consumer", fmt.Sprintf("%p", c))
	}
}

// lookup must be called with s.mu held.
func (s *Store) lookup(key string) (any, bool) {
	if s.kind == MapKind {
		v, ok := s.m[key]
		return v, ok
	}
	if key == lengthKey {
		return len(s.seq), true
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(s.seq) {
		return nil, false
	}
	return s.seq[i], true
}

// Set writes value at key and notifies the dependents of key. Writing a value
// identical to the current one does nothing. Writing MarkerKey fails with
// ErrReservedProperty. On a sequence, key must be an existing index; a sequence
// grows by writing a new sequence to its parent key.
func (s *Store) Set(key string, value any) error {
	if key == MarkerKey {
		return fmt.Errorf("set %q: %w", key, ErrReservedProperty)
	}
	if inner, ok := value.(*Store); ok {
		value = inner.Raw()
	}

	s.mu.Lock()
	old, exists := s.lookup(key)
	if (exists && sameValue(old, value)) || (!exists && value == nil) {
		s.mu.Unlock()
		return nil
	}
	if err := s.store(key, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify(key, value, false)
	return nil
}

// Delete removes key and notifies the dependents of key. Deleting an absent key
// does nothing. Deleting MarkerKey fails with ErrReservedProperty. On a
// sequence the element is cleared to nil and the length is kept.
func (s *Store) Delete(key string) error {
	if key == MarkerKey {
		return fmt.Errorf("delete %q: %w", key, ErrReservedProperty)
	}

	s.mu.Lock()
	old, exists := s.lookup(key)
	if !exists || (s.kind == SeqKind && old == nil) {
		s.mu.Unlock()
		return nil
	}
	if s.kind == MapKind {
		delete(s.m, key)
	} else {
		i, _ := strconv.Atoi(key)
		s.seq[i] = nil
	}
	s.mu.Unlock()

	s.notify(key, "", true)
	return nil
}

// store must be called with s.mu held.
func (s *Store) store(key string, value any) error {
	if s.kind == MapKind {
		s.m[key] = value
		return nil
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(s.seq) {
		return fmt.Errorf("set %q: %w (length %d)", key, ErrNotIndex, len(s.seq))
	}
	s.seq[i] = value
	return nil
}

// notify re-resolves and re-renders every live dependent of key. It runs
// without holding any store lock so dependents may read and write freely.
func (s *Store) notify(key string, value any, deleted bool) {
	logger := s.shared.logger.With("key", key, "deleted", deleted)
	dependents := s.deps.dependents(key)
	logger.Debug("Notifying dependents.", "count", len(dependents))

	for _, c := range dependents {
		if !c.Connected() {
			logger.Debug("Skipping disconnected dependent.", "consumer", fmt.Sprintf("%p", c))
			continue
		}
		if s.shared.resolver != nil {
			s.shared.resolver.Reresolve(c, s.root)
		}
		if sink, ok := c.(ValueSink); ok && sink.SupportsDirectValueSink() && sink.SinkName() == key {
			sink.SetValue(value)
		}
		if r, ok := c.(Renderer); ok {
			runRender(r)
		}
	}
}

// runRender runs the render hook unless r is already rendering, and returns r
// to Idle however the hook exits.
func runRender(r Renderer) {
	if !r.BeginRender() {
		return
	}
	defer r.EndRender()
	r.Render()
}

// sameValue reports whether writing b over a would leave the value unchanged.
// Maps and sequences compare by identity, everything else by equality.
func sameValue(a, b any) bool {
	ia, okA := identityOf(a)
	ib, okB := identityOf(b)
	if okA || okB {
		return okA && okB && ia == ib && ia.ptr != 0
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
