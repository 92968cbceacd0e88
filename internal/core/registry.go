package core

import (
	"slices"
	"strings"
	"sync"
)

// Registry is the authoritative map from user id to live Session.
// At most one session per user id is registered; a reconnect replaces the
// previous session and closes it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	known    map[string]User
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		known:    make(map[string]User),
	}
}

// Register inserts s, replacing any session already registered for the same
// user id. The replaced session is closed and returned.
//
// Before s becomes visible to ForEach it is sent a UserList snapshot that
// includes itself, so that snapshot is always its first event.
func (r *Registry) Register(s *Session) *Session {
	r.mu.Lock()
	prev := r.sessions[s.User.ID]
	u := s.User
	u.IsOnline = true
	s.Deliver(&UserList{Users: r.snapshotLocked(u)})
	r.sessions[s.User.ID] = s
	r.known[u.ID] = u
	r.mu.Unlock()

	if prev != nil && prev != s {
		prev.Close()
		return prev
	}
	return nil
}

// Unregister removes the entry for userID only if it still points at s.
// It reports whether the entry was removed.
func (r *Registry) Unregister(userID string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.sessions[userID]
	if !ok || cur != s {
		return false
	}
	delete(r.sessions, userID)
	if u, ok := r.known[userID]; ok {
		u.IsOnline = false
		r.known[userID] = u
	}
	return true
}

// Lookup returns the live session of userID.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// Known returns a user that is online or has been online since start.
func (r *Registry) Known(userID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.known[userID]
	return u, ok
}

// Remember records u as known without marking it online.
func (r *Registry) Remember(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, online := r.sessions[u.ID]; online {
		return
	}
	u.IsOnline = false
	r.known[u.ID] = u
}

// Snapshot returns the online users ordered by id.
func (r *Registry) Snapshot() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// snapshotLocked lists the online users plus extra, which replaces any
// registered entry with the same id. The caller holds r.mu.
func (r *Registry) snapshotLocked(extra ...User) []User {
	users := make([]User, 0, len(r.sessions)+len(extra))
	for id, s := range r.sessions {
		if slices.ContainsFunc(extra, func(u User) bool { return u.ID == id }) {
			continue
		}
		u := s.User
		u.IsOnline = true
		users = append(users, u)
	}
	users = append(users, extra...)

	slices.SortFunc(users, func(a, b User) int {
		return strings.Compare(a.ID, b.ID)
	})
	return users
}

// ForEach calls fn for every live session. The set is copied under the read
// lock and fn runs without holding it, so fn may deliver, register or
// unregister freely.
func (r *Registry) ForEach(fn func(*Session)) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		fn(s)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
