package core

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// DefaultSessionBuffer is the outbound buffer size of a session.
const DefaultSessionBuffer = 64

// Stream is the transport side of a session: it writes one event to the
// client. Implementations need not be safe for concurrent use; a session
// has exactly one writer.
type Stream interface {
	Send(ctx context.Context, ev Event) error
}

// Manager owns the lifecycle of streaming sessions:
// connecting → open → closing → closed.
type Manager struct {
	registry *Registry
	presence *Presence
	store    Store
	buffer   int
	log      *zerolog.Logger
}

// NewManager builds a session manager. st may be nil.
func NewManager(registry *Registry, presence *Presence, st Store, logger *zerolog.Logger) *Manager {
	return &Manager{
		registry: registry,
		presence: presence,
		store:    st,
		buffer:   DefaultSessionBuffer,
		log:      logger,
	}
}

// SetBuffer overrides the per-session outbound buffer size.
func (m *Manager) SetBuffer(n int) {
	if n > 0 {
		m.buffer = n
	}
}

// Open authenticates u, registers a new session for it and announces it.
// The new session's first event is its own UserList snapshot. A session
// registered earlier for the same id is closed.
func (m *Manager) Open(ctx context.Context, u User) (*Session, error) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return nil, coreError(ErrCodeInvalidArgument, "client id is required")
	}
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		u.Name = "User " + u.ID
	}
	u.IsOnline = true

	s := NewSession(ctx, u, m.buffer)
	m.remember(ctx, u)

	if replaced := m.registry.Register(s); replaced != nil {
		m.log.Info().Str("user_id", u.ID).Str("replaced_session", replaced.ID).Msg("session replaced by reconnect")
	}
	s.setState(StateOpen)
	metrics.SessionsActive.Inc()
	m.presence.Online(s)

	m.log.Info().Str("user_id", u.ID).Str("session_id", s.ID).Msg("session opened")
	return s, nil
}

// Serve writes the session's events to stream in arrival order until ctx
// or the session is done. A write failure is returned as ErrUnavailable.
func (m *Manager) Serve(ctx context.Context, s *Session, stream Stream) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.Done():
			return nil
		case ev, ok := <-s.Events():
			if !ok {
				return nil
			}
			if err := stream.Send(ctx, ev); err != nil {
				return &CoreError{Code: ErrCodeUnavailable, Message: "stream write failed", Err: err}
			}
		}
	}
}

// Close tears s down. Only the first call has an effect, so an I/O error
// and an explicit cancel may race to close the same session. The offline
// presence is broadcast only if s was still the user's registered session.
func (m *Manager) Close(s *Session) {
	s.closeOnce.Do(func() {
		s.setState(StateClosing)
		s.Close()

		removed := m.registry.Unregister(s.User.ID, s)
		s.shutdown()
		s.setState(StateClosed)
		metrics.SessionsActive.Dec()

		if removed {
			m.presence.Offline(s.User)
		}
		m.log.Info().Str("user_id", s.User.ID).Str("session_id", s.ID).Bool("last", removed).Msg("session closed")
	})
}

// CloseAll tears down every live session, used on shutdown.
func (m *Manager) CloseAll() {
	m.registry.ForEach(m.Close)
}

// Run opens a session for u, serves it on stream and closes it when the
// stream ends.
func (m *Manager) Run(ctx context.Context, u User, stream Stream) error {
	s, err := m.Open(ctx, u)
	if err != nil {
		return err
	}
	defer m.Close(s)

	err = m.Serve(ctx, s, stream)
	if err != nil && !errors.Is(err, context.Canceled) {
		m.log.Warn().Err(err).Str("user_id", u.ID).Msg("stream ended with error")
	}
	return err
}

// Session returns the live session of userID or ErrNoSession.
func (m *Manager) Session(userID string) (*Session, error) {
	s, ok := m.registry.Lookup(userID)
	if !ok {
		return nil, coreError(ErrCodeNoSession, "no active session for "+userID)
	}
	return s, nil
}

// Users returns the online users.
func (m *Manager) Users() []User {
	return m.registry.Snapshot()
}

// Connections returns the number of live sessions.
func (m *Manager) Connections() int {
	return m.registry.Len()
}

func (m *Manager) remember(ctx context.Context, u User) {
	if m.store == nil {
		return
	}
	if err := m.store.UpsertUser(ctx, &store.User{ID: u.ID, Name: u.Name}); err != nil {
		m.log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to persist user")
	}
}
