// Package track holds the active-reader context: the consumer currently being
// resolved, so reactive stores know whom to attribute a read to.
//
// A Tracker is an explicit object rather than a process-wide slot. It keeps a
// stack so a nested resolution restores the previous reader when it returns.
package track

import "sync"

// Tracker records the consumer that is currently performing tracked reads.
type Tracker struct {
	mu    sync.Mutex
	stack []any
}

// New creates an empty tracker with no active reader.
func New() *Tracker {
	return &Tracker{}
}

// Current returns the active reader, or nil when no reader is active.
func (t *Tracker) Current() any {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// Push makes reader the active reader until the matching Pop.
func (t *Tracker) Push(reader any) {
	t.mu.Lock()
	t.stack = append(t.stack, reader)
	t.mu.Unlock()
}

// Pop restores the reader that was active before the last Push.
func (t *Tracker) Pop() {
	t.mu.Lock()
	if n := len(t.stack); n > 0 {
		t.stack[n-1] = nil
		t.stack = t.stack[:n-1]
	}
	t.mu.Unlock()
}

// Depth reports how many readers are currently stacked.
func (t *Tracker) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}

// Track runs fn with reader active and restores the previous reader on
// return, including when fn panics.
func (t *Tracker) Track(reader any, fn func()) {
	t.Push(reader)
	defer t.Pop()
	fn()
}
