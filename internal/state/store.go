// Package state provides the per-session key/value store for intermediate
// workflow artifacts. One Store serves all sessions; scoping by session ID
// is enforced here, not by caller convention.
package state

import (
	"fmt"
	"maps"
	"sync"
)

// KeyNotFoundError reports a missing artifact for a session.
type KeyNotFoundError struct {
	SessionID string
	Key       string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("no %q artifact stored for session %s", e.Key, e.SessionID)
}

// Store holds per-session state. Writes to the same session are serialized;
// unrelated sessions proceed fully in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

type sessionState struct {
	mu     sync.RWMutex
	lock   sync.Mutex // serializes whole transitions, see WithSessionLock
	values map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*sessionState)}
}

func (s *Store) session(sessionID string) *sessionState {
	s.mu.RLock()
	ss, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return ss
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ss, ok = s.sessions[sessionID]; ok {
		return ss
	}
	ss = &sessionState{values: make(map[string]any)}
	s.sessions[sessionID] = ss
	return ss
}

// Get returns the value stored under key for the session.
func (s *Store) Get(sessionID, key string) (any, error) {
	ss := s.session(sessionID)
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	v, ok := ss.values[key]
	if !ok {
		return nil, &KeyNotFoundError{SessionID: sessionID, Key: key}
	}
	return v, nil
}

// Put stores a value under key for the session, overwriting any prior value.
func (s *Store) Put(sessionID, key string, value any) {
	ss := s.session(sessionID)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.values[key] = value
}

// Snapshot returns a copy of the session's state map. The map itself is a
// fresh copy; stored values are shared, so callers must treat them as
// read-only (the orchestrator only stores immutable artifacts).
func (s *Store) Snapshot(sessionID string) map[string]any {
	ss := s.session(sessionID)
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	out := make(map[string]any, len(ss.values))
	maps.Copy(out, ss.values)
	return out
}

// WithSessionLock runs fn while holding the session's transition lock. The
// orchestrator wraps every stage transition in this so a session is mutated
// by at most one caller at a time, without any global lock.
func (s *Store) WithSessionLock(sessionID string, fn func() error) error {
	ss := s.session(sessionID)
	ss.lock.Lock()
	defer ss.lock.Unlock()
	return fn()
}
