package reactor

import "sync"

// registry maps a property key to the ordered set of consumers that read it.
type registry struct {
	mu   sync.Mutex
	sets map[string]*consumerSet
}

// consumerSet is an insertion-ordered set.
type consumerSet struct {
	order   []Consumer
	members map[Consumer]struct{}
}

func newRegistry() *registry {
	return &registry{sets: make(map[string]*consumerSet)}
}

// add registers c as a dependent of key. Adding the same consumer twice is not
// an error, it's idempotent.
func (r *registry) add(key string, c Consumer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[key]
	if !ok {
		set = &consumerSet{members: make(map[Consumer]struct{})}
		r.sets[key] = set
	}
	if _, exists := set.members[c]; exists {
		return false
	}
	set.members[c] = struct{}{}
	set.order = append(set.order, c)
	return true
}

// dependents returns a copy of the consumers registered for key, in the order
// they first read it.
func (r *registry) dependents(key string) []Consumer {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[key]
	if !ok {
		return nil
	}
	out := make([]Consumer, len(set.order))
	copy(out, set.order)
	return out
}

// keys returns every key that has at least one dependent.
func (r *registry) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.sets))
	for k := range r.sets {
		out = append(out, k)
	}
	return out
}
