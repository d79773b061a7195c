package status

import (
	"fmt"
	"slices"
	"sync"
)

// Tracker holds the current State of several entities and routes each
// event to the reducers that handle it. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	reducers map[string]*Reducer
	states   map[string]State
}

// NewTracker creates a Tracker starting every reducer at its initial State.
// Reducer names must be unique.
func NewTracker(reducers ...*Reducer) (*Tracker, error) {
	t := &Tracker{
		reducers: make(map[string]*Reducer, len(reducers)),
		states:   make(map[string]State, len(reducers)),
	}
	for _, r := range reducers {
		if _, dup := t.reducers[r.Name()]; dup {
			return nil, fmt.Errorf("status: duplicate entity %q", r.Name())
		}
		t.reducers[r.Name()] = r
		t.states[r.Name()] = r.Initial()
	}
	return t, nil
}

// Conventional builds a Tracker with LoadTypes and SaveTypes for each name.
func Conventional(names ...string) (*Tracker, error) {
	reducers := make([]*Reducer, 0, len(names))
	for _, name := range names {
		r, err := Build(Config{Name: name, Load: LoadTypes(name), Save: SaveTypes(name)})
		if err != nil {
			return nil, err
		}
		reducers = append(reducers, r)
	}
	return NewTracker(reducers...)
}

// Dispatch applies e to every reducer that handles its type and returns the
// names of those entities, sorted. An event nobody handles changes nothing.
func (t *Tracker) Dispatch(e Event) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matched []string
	for name, r := range t.reducers {
		if !r.Handles(e.Type) {
			continue
		}
		t.states[name] = r.Reduce(t.states[name], e)
		matched = append(matched, name)
	}
	slices.Sort(matched)
	return matched
}

// State returns the current State of the named entity.
func (t *Tracker) State(name string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[name]
	return s, ok
}

// States returns a copy of every entity's State.
func (t *Tracker) States() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]State, len(t.states))
	for name, s := range t.states {
		out[name] = s
	}
	return out
}

// Names returns the tracked entity names, sorted.
func (t *Tracker) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.reducers))
	for name := range t.reducers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
