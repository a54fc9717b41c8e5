// Package store holds the current diagram so that generate and export
// actions triggered independently see the same markup.
package store

import (
	"sync"
	"time"
)

// Settings describes how the current diagram was produced.
type Settings struct {
	Theme    string `json:"theme,omitempty"`
	Grouping string `json:"grouping,omitempty"`
	StartID  string `json:"start_id,omitempty"`
	Title    string `json:"title,omitempty"`
}

// State is a copy of the store contents.
type State struct {
	Diagram     string    `json:"diagram"`
	Settings    Settings  `json:"settings"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Empty reports whether no diagram has been generated yet.
func (s State) Empty() bool { return s.Diagram == "" }

// Snapshot is the state plus bookkeeping, for diagnostics and the HTTP API.
type Snapshot struct {
	State       State  `json:"state"`
	Version     uint64 `json:"version"`
	Subscribers int    `json:"subscribers"`
}

// Listener is called with the new state and its version after every change.
type Listener func(State, uint64)

// DiagramStore is an observable, versioned slot for the current diagram.
// It is safe for concurrent use.
type DiagramStore struct {
	mu        sync.Mutex
	state     State
	version   uint64
	disposed  bool
	nextSubID int
	subs      map[int]Listener
	now       func() time.Time
}

// New returns an empty store.
func New() *DiagramStore {
	return &DiagramStore{
		subs: make(map[int]Listener),
		now:  time.Now,
	}
}

// Get returns a copy of the current state.
func (s *DiagramStore) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns the current diagram markup.
func (s *DiagramStore) Text() string {
	return s.Get().Diagram
}

// Set replaces the diagram and settings, bumps the version and notifies
// subscribers. It is a no-op once the store is disposed.
func (s *DiagramStore) Set(diagram string, settings Settings) {
	s.Update(func(State) State {
		return State{Diagram: diagram, Settings: settings}
	})
}

// Update applies fn to the current state. GeneratedAt is stamped by the store.
func (s *DiagramStore) Update(fn func(State) State) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	next := fn(s.state)
	next.GeneratedAt = s.now()
	s.state = next
	s.version++
	state, version := s.state, s.version
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(state, version)
	}
}

// Subscribe registers l and immediately calls it with the current state.
// The returned function removes the subscription.
func (s *DiagramStore) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = l
	state, version := s.state, s.version
	s.mu.Unlock()

	l(state, version)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the state together with its version and subscriber count.
func (s *DiagramStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, Version: s.version, Subscribers: len(s.subs)}
}

// Dispose drops all subscribers and ignores further updates.
func (s *DiagramStore) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.subs = make(map[int]Listener)
}

func (s *DiagramStore) listenersLocked() []Listener {
	out := make([]Listener, 0, len(s.subs))
	for id := 0; id < s.nextSubID; id++ {
		if l, ok := s.subs[id]; ok {
			out = append(out, l)
		}
	}
	return out
}
