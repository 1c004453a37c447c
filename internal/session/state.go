package session

import (
	"fmt"
	"sync"

	"pkt.systems/oxycord/schema"
)

// Saver persists a session snapshot.
type Saver interface {
	Save(data schema.SessionData) error
}

// State holds the process-wide session data.
type State struct {
	mu   sync.Mutex
	data schema.SessionData
}

// New wraps initial session data, typically the result of a store load.
func New(initial schema.SessionData) *State {
	return &State{data: initial.Clone()}
}

// Token returns the current token.
func (s *State) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.TokenValue()
}

// Snapshot returns a copy of the session data.
func (s *State) Snapshot() schema.SessionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// SetToken replaces the token and returns the resulting snapshot.
func (s *State) SetToken(token string) schema.SessionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = s.data.WithToken(token)
	return s.data.Clone()
}

// Commit stores token and persists the snapshot through saver.
// The lock is released before saver runs.
func (s *State) Commit(token string, saver Saver) error {
	snapshot := s.SetToken(token)
	if saver == nil {
		return nil
	}
	if err := saver.Save(snapshot); err != nil {
		return fmt.Errorf("%w: %w", schema.ErrPersistence, err)
	}
	return nil
}
