package session

import "sync"

// Registry maps user identifiers to their sessions. Entries appear on the
// first successful upload and disappear on eviction; lookups never create.
// The registry lock only guards the map itself and is never held across
// session operations or oracle calls.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session for user, or ErrNotFound.
func (r *Registry) Get(user string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[user]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// ensure returns the session for user, creating an empty one if absent.
// Only the upload path calls this.
func (r *Registry) ensure(user string, mgr *Manager) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[user]
	if !ok {
		s = &Session{owner: user, mgr: mgr}
		r.sessions[user] = s
	}
	return s
}

// Evict removes the user's registry entry. Evicting an absent user is a
// no-op. The session object itself is untouched; in-flight operations on
// it finish against the now-orphaned state.
func (r *Registry) Evict(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, user)
}

// evictIfEmpty removes the entry only if it still maps to s and s never
// became ready. The upload path uses it to roll back entries it created
// for uploads that then failed. The rolled-back session is marked dead so
// uploaders already holding a pointer to it retry with a fresh session
// instead of filling an orphan the registry no longer knows.
// Callers must hold s.mu.
func (r *Registry) evictIfEmpty(user string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[user]; ok && cur == s && s.index == nil {
		s.dead = true
		delete(r.sessions, user)
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
