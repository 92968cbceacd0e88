package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

const (
	authTimeout = 10 * time.Second
	pingTimeout = 10 * time.Second

	errCodeAuthRequired        = "auth_required"
	errCodeUnauthorized        = "unauthorized"
	errCodeUnsupportedProtocol = "unsupported_protocol"
)

var errSessionReplaced = errors.New("session replaced")

// handshakeError is an auth failure reported to the client before closing.
type handshakeError struct {
	out    *proto.Outbound
	status websocket.StatusCode
}

func (e *handshakeError) Error() string { return e.out.Error.Msg }

// WSHandler upgrades HTTP connections and bridges them to relay sessions.
type WSHandler struct {
	relay     *core.Relay
	verifier  *auth.Verifier
	heartbeat time.Duration
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. A non-positive heartbeat
// disables pings.
func NewWSHandler(relay *core.Relay, verifier *auth.Verifier, heartbeat time.Duration, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{relay: relay, verifier: verifier, heartbeat: heartbeat, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	user, err := h.handshake(ctx, conn)
	if err != nil {
		h.reject(ctx, conn, err)
		return
	}

	session, err := h.relay.Manager.Open(ctx, user)
	if err != nil {
		h.reject(ctx, conn, err)
		return
	}
	defer h.relay.Manager.Close(session)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.heartbeatLoop(ctx, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutines
	<-errCh
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if errors.Is(err, errSessionReplaced) {
		reason = err.Error()
		err = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", session.User.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake reads the auth frame that must open every connection.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (core.User, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		return core.User{}, err
	}
	if inbound.Type != proto.InboundTypeAuth {
		return core.User{}, &handshakeError{
			out:    errorOutbound(errCodeAuthRequired, "first message must be auth"),
			status: websocket.StatusPolicyViolation,
		}
	}

	var data proto.AuthData
	if err := json.Unmarshal(inbound.Data, &data); err != nil {
		return core.User{}, &handshakeError{
			out:    errorOutbound(errCodeBadRequest, "invalid auth payload"),
			status: websocket.StatusPolicyViolation,
		}
	}
	if data.Protocol != 0 && data.Protocol != proto.ProtocolVersion {
		return core.User{}, &handshakeError{
			out:    errorOutbound(errCodeUnsupportedProtocol, "unsupported protocol version"),
			status: websocket.StatusPolicyViolation,
		}
	}

	id, err := h.verifier.Authenticate(data.ClientID, data.Name, data.Token)
	if err != nil {
		code := errCodeUnauthorized
		if errors.Is(err, auth.ErrMissingIdentity) {
			code = core.ErrCodeInvalidArgument
		}
		return core.User{}, &handshakeError{
			out:    errorOutbound(code, err.Error()),
			status: websocket.StatusPolicyViolation,
		}
	}
	return core.User{ID: id.ClientID, Name: id.Name}, nil
}

// reject reports a failed handshake or open to the client and closes.
func (h *WSHandler) reject(ctx context.Context, conn *websocket.Conn, err error) {
	var hsErr *handshakeError
	if !errors.As(err, &hsErr) {
		var ce *core.CoreError
		if !errors.As(err, &ce) {
			h.log.Debug().Err(err).Msg("ws handshake failed")
			return
		}
		hsErr = &handshakeError{out: outboundFromError(err), status: websocket.StatusPolicyViolation}
	}

	h.log.Debug().Str("code", hsErr.out.Error.Code).Msg("ws handshake rejected")
	_ = wsjson.Write(ctx, conn, hsErr.out)
	conn.Close(hsErr.status, hsErr.out.Error.Code)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", session.User.ID).Msg("read ws inbound")
			return err
		}

		reply := dispatch(ctx, h.relay, session, inbound)
		if reply == nil {
			continue
		}
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return err
		}
	}
}

// writeLoop serves the session's events until it ends. A session that stops
// while the connection is healthy was replaced by a reconnect.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	err := h.relay.Manager.Serve(ctx, session, &wsStream{conn: conn})
	if err != nil {
		h.log.Error().Err(err).Str("client_id", session.User.ID).Msg("write ws event")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errSessionReplaced
}

func (h *WSHandler) heartbeatLoop(ctx context.Context, conn *websocket.Conn) error {
	if h.heartbeat <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// wsStream adapts a WebSocket connection to core.Stream.
type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Send(ctx context.Context, ev core.Event) error {
	return wsjson.Write(ctx, s.conn, outboundFromEvent(ev))
}
