package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

const (
	errCodeBadRequest     = "bad_request"
	errCodeInvalidMessage = "invalid_message"
)

// dispatch executes one inbound frame for session and returns the direct
// reply, if any. Events caused by the frame reach the client through the
// session's write loop.
func dispatch(ctx context.Context, relay *core.Relay, session *core.Session, inbound proto.Inbound) *proto.Outbound {
	switch inbound.Type {
	case proto.InboundTypeMessage:
		var msg proto.MessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return errorOutbound(errCodeBadRequest, "invalid message payload")
		}
		res, err := relay.Router.Send(ctx, session, core.ClientMessage{Text: msg.Text, RecipientID: msg.RecipientID})
		if err != nil {
			return outboundFromError(err)
		}
		return &proto.Outbound{
			Type: proto.OutboundTypeAck,
			Data: proto.AckData{Success: res.Success, MessageID: res.MessageID},
		}
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return errorOutbound(errCodeBadRequest, "invalid typing payload")
		}
		if err := relay.Typing.Send(ctx, session, typing.ContextID, typing.IsTyping); err != nil {
			return outboundFromError(err)
		}
		return nil
	case proto.InboundTypeGetUsers:
		out := outboundFromEvent(&core.UserList{Users: relay.Users()})
		return &out
	case proto.InboundTypeAuth:
		return errorOutbound(errCodeBadRequest, "already authenticated")
	default:
		return errorOutbound(errCodeInvalidMessage, "unknown message type")
	}
}

func outboundFromEvent(ev core.Event) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: ev.Kind().String()}

	switch e := ev.(type) {
	case *core.GlobalMessage:
		out.Data = proto.EventGlobalMessage{
			ID:     e.ID,
			Sender: userToProto(e.Sender),
			Text:   e.Text,
			TS:     e.Timestamp.UnixMilli(),
		}
	case *core.PrivateMessage:
		out.Data = proto.EventPrivateMessage{
			ID:        e.ID,
			Sender:    userToProto(e.Sender),
			Recipient: userToProto(e.Recipient),
			Text:      e.Text,
			TS:        e.Timestamp.UnixMilli(),
		}
	case *core.PresenceUpdate:
		out.Data = proto.EventPresence{
			User:     userToProto(e.User),
			IsOnline: e.IsOnline,
			TS:       e.Timestamp.UnixMilli(),
		}
	case *core.TypingEvent:
		out.Data = proto.EventTyping{
			User:      userToProto(e.User),
			ContextID: e.ContextID,
			IsTyping:  e.IsTyping,
			TS:        e.Timestamp.UnixMilli(),
		}
	case *core.UserList:
		out.Data = proto.EventUserList{Users: usersToProto(e.Users)}
	}
	return out
}

func outboundFromError(err error) *proto.Outbound {
	code := core.ErrorCode(err)
	msg := "internal error"
	var ce *core.CoreError
	if errors.As(err, &ce) && code != core.ErrCodeInternal {
		msg = ce.Message
	}
	return errorOutbound(code, msg)
}

func errorOutbound(code, msg string) *proto.Outbound {
	return &proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: code, Msg: msg}}
}

func userToProto(u core.User) proto.User {
	return proto.User{ID: u.ID, Name: u.Name, IsOnline: u.IsOnline}
}

func usersToProto(users []core.User) []proto.User {
	out := make([]proto.User, 0, len(users))
	for _, u := range users {
		out = append(out, userToProto(u))
	}
	return out
}
