package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	grpcgo "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto/chatpb"
)

func startTestServer(t *testing.T, verifier *auth.Verifier) *Client {
	t.Helper()

	logger := zerolog.Nop()
	relay := core.NewRelay(core.Options{Logger: &logger})

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(NewService(relay, verifier, &logger), &logger)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcgo.NewClient("passthrough:///bufnet",
		grpcgo.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpcgo.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func as(ctx context.Context, clientID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, MDClientID, clientID)
}

// connect opens a stream for id and consumes its initial user list.
func connect(t *testing.T, ctx context.Context, c *Client, id string) (ChatStreamClient, *chatpb.UserList) {
	t.Helper()

	stream, err := c.ChatStream(ctx, &chatpb.AuthRequest{ClientID: id})
	if err != nil {
		t.Fatalf("open stream %s: %v", id, err)
	}
	msg, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv user list for %s: %v", id, err)
	}
	list, ok := msg.Payload.(*chatpb.UserList)
	if !ok {
		t.Fatalf("%s: first message is %T, want user list", id, msg.Payload)
	}
	return stream, list
}

func recvPayload[T chatpb.Payload](t *testing.T, stream ChatStreamClient) T {
	t.Helper()

	msg, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	p, ok := msg.Payload.(T)
	if !ok {
		var zero T
		t.Fatalf("got %T, want %T", msg.Payload, zero)
	}
	return p
}

func TestChatStreamPrivateConversation(t *testing.T) {
	c := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, _ := connect(t, ctx, c, "alice")

	bobCtx, closeBob := context.WithCancel(ctx)
	bob, users := connect(t, bobCtx, c, "bob")
	if len(users.Users) != 2 {
		t.Fatalf("bob sees %d users, want 2", len(users.Users))
	}

	online := recvPayload[*chatpb.UserPresenceUpdate](t, alice)
	if online.User.ID != "bob" || !online.IsOnline {
		t.Fatalf("unexpected presence: %+v", online)
	}

	if err := c.SendTyping(as(ctx, "alice"), &chatpb.TypingEvent{ContextID: "bob", IsTyping: true}); err != nil {
		t.Fatalf("send typing: %v", err)
	}
	typing := recvPayload[*chatpb.TypingEvent](t, bob)
	if typing.ContextID != "alice" || !typing.IsTyping || typing.User.ID != "alice" {
		t.Fatalf("unexpected typing: %+v", typing)
	}

	res, err := c.SendMessage(as(ctx, "alice"), &chatpb.ClientMessage{Text: "Hi Bob", RecipientID: "bob"})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if !res.Success || res.MessageID == "" {
		t.Fatalf("unexpected response: %+v", res)
	}

	got := recvPayload[*chatpb.PrivateMessage](t, bob)
	echo := recvPayload[*chatpb.PrivateMessage](t, alice)
	if got.ID != res.MessageID || echo.ID != res.MessageID {
		t.Fatalf("message id mismatch")
	}
	if got.Text != "Hi Bob" || got.Sender.ID != "alice" || got.Recipient.ID != "bob" || got.Timestamp == 0 {
		t.Fatalf("unexpected message: %+v", got)
	}

	closeBob()
	offline := recvPayload[*chatpb.UserPresenceUpdate](t, alice)
	if offline.User.ID != "bob" || offline.IsOnline {
		t.Fatalf("unexpected presence: %+v", offline)
	}
}

func TestChatStreamGlobalBroadcast(t *testing.T) {
	c := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids := []string{"a", "b", "c"}
	streams := make([]ChatStreamClient, 0, len(ids))
	for _, id := range ids {
		s, _ := connect(t, ctx, c, id)
		// earlier streams see one online update per later joiner
		for _, prev := range streams {
			recvPayload[*chatpb.UserPresenceUpdate](t, prev)
		}
		streams = append(streams, s)
	}

	res, err := c.SendMessage(as(ctx, "b"), &chatpb.ClientMessage{Text: "hello everyone"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	for i, s := range streams {
		msg := recvPayload[*chatpb.GlobalMessage](t, s)
		if msg.ID != res.MessageID || msg.Sender.ID != "b" {
			t.Fatalf("%s got %+v", ids[i], msg)
		}
	}

	list, err := c.GetUsers(ctx)
	if err != nil {
		t.Fatalf("get users: %v", err)
	}
	if len(list.Users) != 3 || list.Users[0].ID != "a" || !list.Users[0].IsOnline {
		t.Fatalf("unexpected users: %+v", list.Users)
	}
}

func TestUnaryErrors(t *testing.T) {
	c := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connect(t, ctx, c, "alice")

	cases := []struct {
		name string
		ctx  context.Context
		msg  *chatpb.ClientMessage
		code codes.Code
	}{
		{"empty text", as(ctx, "alice"), &chatpb.ClientMessage{Text: " "}, codes.InvalidArgument},
		{"unknown recipient", as(ctx, "alice"), &chatpb.ClientMessage{Text: "hi", RecipientID: "ghost"}, codes.NotFound},
		{"no session", as(ctx, "mallory"), &chatpb.ClientMessage{Text: "hi"}, codes.FailedPrecondition},
		{"no identity", ctx, &chatpb.ClientMessage{Text: "hi"}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.SendMessage(tc.ctx, tc.msg)
			if status.Code(err) != tc.code {
				t.Fatalf("expected %v, got %v", tc.code, err)
			}
		})
	}

	err := c.SendTyping(as(ctx, "alice"), &chatpb.TypingEvent{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("typing without context: expected InvalidArgument, got %v", err)
	}
}

func TestChatStreamRequiresValidToken(t *testing.T) {
	cfg := &auth.JWTConfig{Secret: []byte("secret"), TTL: time.Minute}
	c := startTestServer(t, auth.NewVerifier(cfg, true))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recvCode := func(ctx context.Context, id string) codes.Code {
		stream, err := c.ChatStream(ctx, &chatpb.AuthRequest{ClientID: id})
		if err != nil {
			return status.Code(err)
		}
		_, err = stream.Recv()
		return status.Code(err)
	}

	if code := recvCode(ctx, "alice"); code != codes.Unauthenticated {
		t.Fatalf("missing token: got %v", code)
	}

	token, err := auth.GenerateToken(cfg, "alice", "Alice")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	withToken := metadata.AppendToOutgoingContext(ctx, MDAuthorization, "Bearer "+token)

	if code := recvCode(withToken, "bob"); code != codes.Unauthenticated {
		t.Fatalf("subject mismatch: got %v", code)
	}

	stream, err := c.ChatStream(withToken, &chatpb.AuthRequest{ClientID: "alice"})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	list := recvPayload[*chatpb.UserList](t, stream)
	if len(list.Users) != 1 || list.Users[0].Name != "Alice" {
		t.Fatalf("unexpected user list: %+v", list.Users)
	}
}
