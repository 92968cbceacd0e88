package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/utils"
)

// SessionState is the lifecycle stage of a Session.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one live streaming connection of a user.
type Session struct {
	ID   string
	User User

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewSession constructs a session in the connecting state with a bounded
// outbound buffer. Cancelling parent cancels the session.
func NewSession(parent context.Context, user User, buffer int) *Session {
	if buffer <= 0 {
		buffer = 1
	}
	if user.Name == "" {
		user.Name = user.ID
	}
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:     utils.NewID(),
		User:   user,
		events: make(chan Event, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Events is the outbound channel drained by the session's write loop.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the session has been asked to stop.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context is cancelled when the session stops.
func (s *Session) Context() context.Context {
	return s.ctx
}

// State returns the current lifecycle stage.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
}

// Deliver enqueues an event without blocking. It returns false when the
// session is closed or its buffer is full; the event is dropped then.
func (s *Session) Deliver(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.events <- ev:
		metrics.EventsDelivered.WithLabelValues(ev.Kind().String()).Inc()
		return true
	default:
		metrics.EventsDropped.WithLabelValues(ev.Kind().String()).Inc()
		return false
	}
}

// Close signals the session's write loop to stop. Safe to call many times.
func (s *Session) Close() {
	s.cancel()
}

// shutdown closes the outbound channel and discards whatever is buffered.
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
	for range s.events {
	}
}
