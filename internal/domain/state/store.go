package state

import "sync"

// Store owns the authoritative ApplicationState.
type Store struct {
	mu    sync.Mutex
	state ApplicationState // Protected by mu
	gate  *Gate
}

// NewStore creates a store holding the default state.
func NewStore() *Store {
	return &Store{
		state: Default(),
		gate:  NewGate(),
	}
}

// Gate returns the readiness gate opened when the state first becomes ready.
func (s *Store) Gate() *Gate {
	return s.gate
}

// Snapshot returns a consistent, independently owned copy of the state.
func (s *Store) Snapshot() ApplicationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

// WithExclusiveAccess runs f against a working copy of the state while
// holding the store lock. The copy replaces the state only when f returns
// nil. If f returns an error or panics, the committed state is unchanged.
func (s *Store) WithExclusiveAccess(f func(*ApplicationState) error) error {
	becameReady, err := s.apply(f)
	if err != nil {
		return err
	}
	if becameReady {
		s.gate.Open()
	}
	return nil
}

// MarkReady sets ready=true and returns the resulting state. Calling it again
// has no observable effect.
func (s *Store) MarkReady() ApplicationState {
	var snap ApplicationState
	_ = s.WithExclusiveAccess(func(st *ApplicationState) error {
		st.Ready = true
		snap = st.Clone()
		return nil
	})
	return snap
}

// Replace swaps in next as the whole state. Fields the caller did not intend
// to change must be echoed back; nothing is merged.
func (s *Store) Replace(next ApplicationState) {
	next = next.Clone()
	_ = s.WithExclusiveAccess(func(st *ApplicationState) error {
		*st = next
		return nil
	})
}

// ReplaceJSON decodes raw as a full state and replaces the current one.
// On a decode failure the store is left untouched and the returned error
// matches ErrDeserialization.
func (s *Store) ReplaceJSON(raw []byte) error {
	next, err := Decode(raw)
	if err != nil {
		return err
	}
	s.Replace(next)
	return nil
}

func (s *Store) apply(f func(*ApplicationState) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.Clone()
	if err := f(&working); err != nil {
		return false, err
	}
	return s.commit(working), nil
}

// commit installs next and reports whether this commit made the state ready.
// ready is latched: once true it stays true.
func (s *Store) commit(next ApplicationState) bool {
	wasReady := s.state.Ready
	if wasReady {
		next.Ready = true
	}
	s.state = next
	return !wasReady && next.Ready
}
