package grpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/metadata"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto/chatpb"
)

// Metadata keys carrying the caller identity.
const (
	MDAuthorization = "authorization"
	MDClientID      = "x-client-id"
	MDClientName    = "x-client-name"

	mdUserID   = "user_id"
	mdUserName = "user_name"
)

// Service implements chat.ChatService on top of a relay.
type Service struct {
	relay    *core.Relay
	verifier *auth.Verifier
	log      *zerolog.Logger
}

var _ ChatServiceServer = (*Service)(nil)

// NewService builds the gRPC service. A nil verifier trusts client ids.
func NewService(relay *core.Relay, verifier *auth.Verifier, logger *zerolog.Logger) *Service {
	if verifier == nil {
		verifier = auth.NewVerifier(nil, false)
	}
	return &Service{relay: relay, verifier: verifier, log: logger}
}

// ChatStream opens the caller's session and streams its events until the
// client goes away or the session is replaced.
func (s *Service) ChatStream(req *chatpb.AuthRequest, stream ChatStreamServer) error {
	ctx := stream.Context()
	id, err := s.identify(ctx, req.ClientID)
	if err != nil {
		s.log.Debug().Err(err).Str("client_id", req.ClientID).Msg("stream rejected")
		return toStatus(err)
	}

	err = s.relay.Manager.Run(ctx, core.User{ID: id.ClientID, Name: id.Name}, &eventStream{stream: stream})
	if err != nil && !errors.Is(err, context.Canceled) {
		return toStatus(err)
	}
	return nil
}

func (s *Service) SendMessage(ctx context.Context, req *chatpb.ClientMessage) (*chatpb.SendMessageResponse, error) {
	id, err := s.identify(ctx, "")
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.relay.SendMessage(ctx, id.ClientID, core.ClientMessage{Text: req.Text, RecipientID: req.RecipientID})
	if err != nil {
		return nil, toStatus(err)
	}
	return &chatpb.SendMessageResponse{Success: res.Success, MessageID: res.MessageID}, nil
}

// GetUsers needs no session: anyone may see who is online.
func (s *Service) GetUsers(context.Context, *chatpb.Empty) (*chatpb.UserList, error) {
	return usersToPB(s.relay.Users()), nil
}

// SendTyping ignores the user and timestamp of req; the sender is the caller.
func (s *Service) SendTyping(ctx context.Context, req *chatpb.TypingEvent) (*chatpb.Empty, error) {
	id, err := s.identify(ctx, "")
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.relay.SendTyping(ctx, id.ClientID, req.ContextID, req.IsTyping); err != nil {
		return nil, toStatus(err)
	}
	return &chatpb.Empty{}, nil
}

// identify authenticates the caller from claimed and the call metadata.
// claimed takes precedence over the metadata client id.
func (s *Service) identify(ctx context.Context, claimed string) (auth.Identity, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	clientID := claimed
	if clientID == "" {
		clientID = first(md, MDClientID, mdUserID)
	}
	name := first(md, MDClientName, mdUserName)
	token := auth.BearerToken(first(md, MDAuthorization))

	return s.verifier.Authenticate(clientID, name, token)
}

func first(md metadata.MD, keys ...string) string {
	for _, k := range keys {
		if v := md.Get(k); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return ""
}

// eventStream adapts a ChatStreamServer to core.Stream.
type eventStream struct {
	stream ChatStreamServer
}

func (e *eventStream) Send(_ context.Context, ev core.Event) error {
	msg := serverMessageFromEvent(ev)
	if msg == nil {
		return fmt.Errorf("unsupported event %T", ev)
	}
	return e.stream.Send(msg)
}
