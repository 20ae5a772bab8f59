package dialogue

import (
	"sync"
	"time"
)

// Session is the mutable dialogue state of one conversation: the pending
// intent (empty when idle) and the slots accumulated across turns. Slots
// survive intent pre-emption on purpose; a new task may reuse a same-named
// slot left behind by the task it replaced.
type Session struct {
	mu            sync.Mutex
	ID            string
	CurrentIntent string
	Slots         map[string]any
	CreatedAt     time.Time
	LastSeen      time.Time
}

// missing returns the keys not yet present in the slot map, keeping order.
func (s *Session) missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if _, ok := s.Slots[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

func (s *Session) clear(keys ...string) {
	for _, k := range keys {
		delete(s.Slots, k)
	}
}

// reset returns the session to its initial state. Idempotent.
func (s *Session) reset() {
	s.CurrentIntent = ""
	s.Slots = map[string]any{}
}

// Store keeps one Session per session id. All methods are safe for concurrent
// use; per-turn mutation is serialized by the session's own mutex so two
// requests for the same session cannot interleave.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}, now: time.Now}
}

// Get returns the session for id, creating it on first use.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		s = &Session{
			ID:        id,
			Slots:     map[string]any{},
			CreatedAt: st.now().UTC(),
		}
		st.sessions[id] = s
	}
	s.LastSeen = st.now().UTC()
	return s
}

// Reset clears the session's state. Unknown ids are a no-op so reset is total.
func (st *Store) Reset(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Len returns the number of known sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
