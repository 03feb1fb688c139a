package identifier

import "sync"

// Tracker remembers the widest State seen per kind so callers sharing a
// generator do not start from a width that is already full.
type Tracker struct {
	mu     sync.Mutex
	states map[Kind]State
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[Kind]State)}
}

// Current returns the last recorded state for kind.
func (t *Tracker) Current(kind Kind) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[kind]
}

// Observe records state for kind unless a wider one is already known, and
// returns the state now held.
func (t *Tracker) Observe(kind Kind, state State) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.states[kind]
	if state.Width > current.Width {
		current = state
		t.states[kind] = current
	}
	return current
}
