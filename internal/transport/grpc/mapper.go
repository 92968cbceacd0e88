package grpc

import (
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto/chatpb"
)

func userToPB(u core.User) *chatpb.User {
	return &chatpb.User{ID: u.ID, Name: u.Name, IsOnline: u.IsOnline}
}

func usersToPB(users []core.User) *chatpb.UserList {
	out := &chatpb.UserList{Users: make([]*chatpb.User, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, userToPB(u))
	}
	return out
}

// serverMessageFromEvent maps a relay event onto the ServerMessage oneof.
// Timestamps are Unix milliseconds.
func serverMessageFromEvent(ev core.Event) *chatpb.ServerMessage {
	switch e := ev.(type) {
	case *core.GlobalMessage:
		return &chatpb.ServerMessage{Payload: &chatpb.GlobalMessage{
			ID:        e.ID,
			Sender:    userToPB(e.Sender),
			Text:      e.Text,
			Timestamp: e.Timestamp.UnixMilli(),
		}}
	case *core.PrivateMessage:
		return &chatpb.ServerMessage{Payload: &chatpb.PrivateMessage{
			ID:        e.ID,
			Sender:    userToPB(e.Sender),
			Recipient: userToPB(e.Recipient),
			Text:      e.Text,
			Timestamp: e.Timestamp.UnixMilli(),
		}}
	case *core.PresenceUpdate:
		return &chatpb.ServerMessage{Payload: &chatpb.UserPresenceUpdate{
			User:      userToPB(e.User),
			IsOnline:  e.IsOnline,
			Timestamp: e.Timestamp.UnixMilli(),
		}}
	case *core.TypingEvent:
		return &chatpb.ServerMessage{Payload: &chatpb.TypingEvent{
			User:      userToPB(e.User),
			ContextID: e.ContextID,
			IsTyping:  e.IsTyping,
			Timestamp: e.Timestamp.UnixMilli(),
		}}
	case *core.UserList:
		return &chatpb.ServerMessage{Payload: usersToPB(e.Users)}
	default:
		return nil
	}
}
