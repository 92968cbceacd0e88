package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/chatrelay/internal/ratelimit"
	"github.com/vovakirdan/chatrelay/internal/store"
)

func TestRouterRejectsInvalidText(t *testing.T) {
	r := newTestRelay(nil)
	alice := openSession(t, r, "alice")
	bob := openSession(t, r, "bob")
	drain(alice)

	cases := []struct {
		name    string
		text    string
		wantMsg string
	}{
		{"empty", "", "empty"},
		{"whitespace", "   \n\t", "empty"},
		{"invalid utf8", string([]byte{0xff, 0xfe}), "UTF-8"},
		{"too many characters", strings.Repeat("я", DefaultMaxMessageRunes+1), "character limit"},
		// 1100 runes, 4400 bytes
		{"too many bytes", strings.Repeat("😀", 1100), "byte limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: tc.text})
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected %q in error, got %q", tc.wantMsg, err.Error())
			}
			if evs := append(drain(alice), drain(bob)...); len(evs) != 0 {
				t.Fatalf("rejected message produced %d events", len(evs))
			}
		})
	}
}

func TestRouterGlobalFanOut(t *testing.T) {
	st := newMemStore()
	r := newTestRelay(st)

	ids := []string{"alice", "bob", "carol", "dave"}
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, openSession(t, r, id))
	}
	for _, s := range sessions {
		drain(s)
	}

	res, err := r.Router.Send(context.Background(), sessions[0], ClientMessage{Text: "  hello all  "})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Success || res.MessageID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	for _, s := range sessions {
		evs := drain(s)
		if len(evs) != 1 {
			t.Fatalf("%s received %d events, want 1", s.User.ID, len(evs))
		}
		msg, ok := evs[0].(*GlobalMessage)
		if !ok {
			t.Fatalf("%s received %T", s.User.ID, evs[0])
		}
		if msg.ID != res.MessageID || msg.Text != "hello all" || msg.Sender.ID != "alice" {
			t.Fatalf("%s received %+v", s.User.ID, msg)
		}
	}

	saved := st.saved()
	if len(saved) != 1 || saved[0].ID != res.MessageID || saved[0].Kind != store.MessageKindGlobal {
		t.Fatalf("unexpected persisted messages: %+v", saved)
	}
}

func TestRouterPrivateDelivery(t *testing.T) {
	r := newTestRelay(newMemStore())
	alice := openSession(t, r, "alice")
	bob := openSession(t, r, "bob")
	carol := openSession(t, r, "carol")
	for _, s := range []*Session{alice, bob, carol} {
		drain(s)
	}

	res, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "hi bob", RecipientID: "bob"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	for _, s := range []*Session{alice, bob} {
		evs := drain(s)
		if len(evs) != 1 {
			t.Fatalf("%s received %d events, want 1", s.User.ID, len(evs))
		}
		msg, ok := evs[0].(*PrivateMessage)
		if !ok {
			t.Fatalf("%s received %T", s.User.ID, evs[0])
		}
		if msg.ID != res.MessageID || msg.Recipient.ID != "bob" || msg.Sender.ID != "alice" {
			t.Fatalf("%s received %+v", s.User.ID, msg)
		}
	}
	if evs := drain(carol); len(evs) != 0 {
		t.Fatalf("bystander received %d events", len(evs))
	}
}

func TestRouterPrivateToSelfIsDeliveredOnce(t *testing.T) {
	r := newTestRelay(nil)
	alice := openSession(t, r, "alice")

	if _, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "note", RecipientID: "alice"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if n := countKind(drain(alice), EventPrivateMessage); n != 1 {
		t.Fatalf("expected one copy, got %d", n)
	}
}

func TestRouterPrivateToOfflineUserIsNotReplayed(t *testing.T) {
	st := newMemStore()
	r := newTestRelay(st)
	alice := openSession(t, r, "alice")
	bob := openSession(t, r, "bob")
	r.Manager.Close(bob)
	drain(alice)

	res, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "you there?", RecipientID: "bob"})
	if err != nil {
		t.Fatalf("send to offline user: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success")
	}
	if n := countKind(drain(alice), EventPrivateMessage); n != 1 {
		t.Fatalf("sender should get its echo, got %d", n)
	}
	if len(st.saved()) != 1 {
		t.Fatalf("offline message should still be persisted")
	}

	bob = openSession(t, r, "bob")
	if n := countKind(drain(bob), EventPrivateMessage); n != 0 {
		t.Fatalf("reconnected user received %d replayed messages", n)
	}
}

func TestRouterResolvesRecipientFromStore(t *testing.T) {
	st := newMemStore()
	_ = st.UpsertUser(context.Background(), &store.User{ID: "zoe", Name: "Zoe"})
	r := newTestRelay(st)
	alice := openSession(t, r, "alice")

	if _, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "hey", RecipientID: "zoe"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := mustEvent(t, alice.Events(), EventPrivateMessage).(*PrivateMessage)
	if msg.Recipient.Name != "Zoe" || msg.Recipient.IsOnline {
		t.Fatalf("unexpected recipient: %+v", msg.Recipient)
	}
}

func TestRouterUnknownRecipient(t *testing.T) {
	r := newTestRelay(newMemStore())
	alice := openSession(t, r, "alice")

	_, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "hello?", RecipientID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if evs := drain(alice); len(evs) != 0 {
		t.Fatalf("failed send produced %d events", len(evs))
	}
}

func TestRouterDeliversWhenStoreFails(t *testing.T) {
	st := newMemStore()
	st.failSave = true
	r := newTestRelay(st)
	alice := openSession(t, r, "alice")
	bob := openSession(t, r, "bob")
	drain(alice)

	res, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "still here"})
	if err != nil || !res.Success {
		t.Fatalf("expected success despite store failure, got %+v %v", res, err)
	}
	if n := countKind(drain(bob), EventGlobalMessage); n != 1 {
		t.Fatalf("expected delivery, got %d", n)
	}
}

type recordingPublisher struct {
	got []*store.Message
}

func (p *recordingPublisher) PublishMessage(_ context.Context, msg *store.Message) error {
	p.got = append(p.got, msg)
	return nil
}

func TestRouterPublishesMessages(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewRelay(Options{Logger: testLogger(), Publisher: pub})
	alice := openSession(t, r, "alice")

	res, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "published"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(pub.got) != 1 || pub.got[0].ID != res.MessageID {
		t.Fatalf("unexpected published messages: %+v", pub.got)
	}
}

func TestRouterRateLimit(t *testing.T) {
	r := NewRelay(Options{
		Logger:      testLogger(),
		Limiter:     ratelimit.NewLocalLimiter(),
		MessageRule: ratelimit.MessageRule(2, time.Minute),
	})
	alice := openSession(t, r, "alice")

	for i := 0; i < 2; i++ {
		if _, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "spam"}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	_, err := r.Router.Send(context.Background(), alice, ClientMessage{Text: "spam"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if n := countKind(drain(alice), EventGlobalMessage); n != 2 {
		t.Fatalf("expected 2 delivered messages, got %d", n)
	}
}

func TestRelaySendWithoutSession(t *testing.T) {
	r := newTestRelay(nil)
	_, err := r.SendMessage(context.Background(), "nobody", ClientMessage{Text: "hi"})
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
}
