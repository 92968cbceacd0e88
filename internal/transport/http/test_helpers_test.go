package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/store"
	"github.com/vovakirdan/chatrelay/internal/store/sqlite"
)

type testServer struct {
	*httptest.Server
	relay *core.Relay
	store store.Store
}

// startTestServer runs the HTTP server over an in-memory sqlite store.
func startTestServer(t *testing.T, verifier *auth.Verifier) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	relay := core.NewRelay(core.Options{Store: st, Logger: &logger})

	cfg := config.Default()
	cfg.HTTPAddr = ":0"
	cfg.HeartbeatInterval = 0

	server := NewServer(Deps{Relay: relay, History: st, Verifier: verifier}, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, relay: relay, store: st}
}

func (ts *testServer) wsURL() string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func dial(t *testing.T, ctx context.Context, ts *testServer) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, ts.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// frame is an outbound envelope with its data left raw.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *proto.Error    `json:"error,omitempty"`
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) frame {
	t.Helper()

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

// readUntil skips frames until match returns true.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()

	for {
		f := read(t, ctx, conn)
		if match(f) {
			return f
		}
	}
}

func isEvent(kind core.EventKind) func(frame) bool {
	return func(f frame) bool {
		return f.Type == proto.OutboundTypeEvent && f.Event == kind.String()
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

// login authenticates conn as id and waits for its user list.
func login(t *testing.T, ctx context.Context, conn *websocket.Conn, id string) proto.EventUserList {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeAuth, proto.AuthData{ClientID: id, Name: strings.ToUpper(id[:1]) + id[1:], Protocol: proto.ProtocolVersion})
	f := read(t, ctx, conn)
	if !isEvent(core.EventUserList)(f) {
		t.Fatalf("expected user list after auth, got %+v", f)
	}
	return decode[proto.EventUserList](t, f.Data)
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
