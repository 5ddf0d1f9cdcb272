package scanmode

import (
	"sync"
	"time"
)

// Store keeps the live sessions of all connected scanners.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idle     time.Duration
}

// NewStore creates a store that forgets sessions idle for longer than idle.
// A zero idle keeps sessions forever.
func NewStore(idle time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		idle:     idle,
	}
}

// Open creates and registers a new session.
func (st *Store) Open() *Session {
	s := NewSession()
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns a registered session.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	return s, ok
}

// Close forgets a session.
func (st *Store) Close(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of registered sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle since before now-idle and returns how many were dropped.
func (st *Store) Sweep(now time.Time) int {
	if st.idle <= 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	dropped := 0
	for id, s := range st.sessions {
		if now.Sub(s.LastActivity()) > st.idle {
			delete(st.sessions, id)
			dropped++
		}
	}
	return dropped
}
