package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/store"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// mustEvent waits for the next event of the given kind, skipping others.
func mustEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed while waiting for %v", kind)
			}
			if ev.Kind() == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drain returns everything currently buffered on a session.
func drain(s *Session) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

// memStore is an in-memory Store with switchable failures.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*store.User
	messages []*store.Message
	failSave bool
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*store.User)}
}

func (m *memStore) UpsertUser(_ context.Context, u *store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) ResolveUser(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) SaveGlobalMessage(_ context.Context, msg *store.Message) error {
	return m.save(msg)
}

func (m *memStore) SavePrivateMessage(_ context.Context, msg *store.Message) error {
	return m.save(msg)
}

func (m *memStore) save(msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memStore) saved() []*store.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.Message(nil), m.messages...)
}

// chanStream forwards written events to a channel; it fails once failAfter
// events have been written, when failAfter > 0.
type chanStream struct {
	out       chan Event
	mu        sync.Mutex
	written   int
	failAfter int
}

func newChanStream() *chanStream {
	return &chanStream{out: make(chan Event, 256)}
}

func (c *chanStream) Send(_ context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAfter > 0 && c.written >= c.failAfter {
		return errors.New("broken pipe")
	}
	c.written++
	c.out <- ev
	return nil
}

func newTestRelay(st Store) *Relay {
	opts := Options{Logger: testLogger()}
	if st != nil {
		opts.Store = st
	}
	return NewRelay(opts)
}

// openSession opens a session for id and discards its initial snapshot.
func openSession(t *testing.T, r *Relay, id string) *Session {
	t.Helper()
	s, err := r.Manager.Open(context.Background(), User{ID: id, Name: id})
	if err != nil {
		t.Fatalf("open %s: %v", id, err)
	}
	mustEvent(t, s.Events(), EventUserList)
	return s
}
