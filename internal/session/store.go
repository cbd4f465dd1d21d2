package session

import (
	"sync"
	"time"
)

// Store keeps sessions by ID for the HTTP front end.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

// NewStore creates a store. Sessions idle longer than idleTTL are dropped by
// Sweep; zero keeps them forever.
func NewStore(idleTTL time.Duration) *Store {
	return &Store{sessions: map[string]*Session{}, idleTTL: idleTTL, now: time.Now}
}

// Get returns the session for id, creating a new one when id is empty or
// unknown. Reads through the store count as activity.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok && id != "" {
		s.Touch(st.now())
		return s
	}
	s := New()
	st.sessions[s.ID()] = s
	return s
}

func (st *Store) Lookup(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		s.Touch(st.now())
	}
	return s, ok
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes idle sessions and returns how many were dropped.
func (st *Store) Sweep(now time.Time) int {
	if st.idleTTL <= 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	dropped := 0
	for id, s := range st.sessions {
		if now.Sub(s.LastActive()) > st.idleTTL {
			delete(st.sessions, id)
			dropped++
		}
	}
	return dropped
}
