// Package state holds the process-wide shared staging state and its
// subscription mechanics. The store is constructed once at startup, owned by
// the application root and injected into everything that reads or writes it;
// there is no ambient global.
package state

import (
	"sync"

	"github.com/docstager/backend/internal/models"
)

// AppState is the canonical shared state: the staged file set plus the small
// UI flags the views share. Lifecycle matches the process; it is never torn
// down explicitly.
type AppState struct {
	Files          models.FileSet `json:"files"`
	FilesPanelOpen bool           `json:"filesPanelOpen"`
	SelectedModel  string         `json:"selectedModel"`
}

// Partial describes a subset of AppState fields for a single update. Nil
// fields are left unchanged.
type Partial struct {
	Files          *models.FileSet
	FilesPanelOpen *bool
	SelectedModel  *string
}

// Listener receives the full new state after every committed Set.
type Listener func(AppState)

// Store is the single mutable shared resource. Each Set is one atomic
// compound update: the replacement is committed and every subscriber is
// notified synchronously with the new snapshot before the next Set can
// begin. Listeners must not call Set from within the callback.
type Store struct {
	commitMu sync.Mutex // serializes Set calls end to end, notification included

	mu    sync.RWMutex // guards current and listeners
	state AppState

	nextID    int
	listeners map[int]Listener
}

// NewStore creates a store with an empty file set and default UI flags.
func NewStore() *Store {
	return &Store{
		state:     AppState{Files: models.NewFileSet()},
		listeners: make(map[int]Listener),
	}
}

// Get returns a snapshot of the current state. The file set is deep-copied;
// callers replace state via Set, never mutate a snapshot in place.
func (s *Store) Get() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Set replaces only the fields present in the partial, commits the result
// and notifies all subscribers with the new full state. Exactly one
// notification is emitted per call regardless of how many fields changed.
func (s *Store) Set(p Partial) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if p.Files != nil {
		s.state.Files = p.Files.Clone()
	}
	if p.FilesPanelOpen != nil {
		s.state.FilesPanelOpen = *p.FilesPanelOpen
	}
	if p.SelectedModel != nil {
		s.state.SelectedModel = *p.SelectedModel
	}
	snapshot := s.snapshotLocked()

	targets := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		targets = append(targets, l)
	}
	s.mu.Unlock()

	// Synchronous fan-out while commitMu is held: no other Set can
	// interleave, so subscribers never observe a partial update.
	for _, l := range targets {
		l(snapshot)
	}
}

// Subscribe registers a listener and returns its cancel function. The
// listener is invoked with the full state after every subsequent Set.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() AppState {
	snap := s.state
	snap.Files = s.state.Files.Clone()
	return snap
}
