// Package proto defines the JSON envelopes of the WebSocket bridge.
package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeAuth     = "auth"
	InboundTypeMessage  = "message"
	InboundTypeTyping   = "typing"
	InboundTypeGetUsers = "get_users"

	OutboundTypeEvent = "event"
	OutboundTypeAck   = "ack"
	OutboundTypeError = "error"
)

// AuthData is sent by the client first to open its session.
type AuthData struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name,omitempty"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// MessageData is a chat message from the client. An empty RecipientID
// addresses the global room.
type MessageData struct {
	Text        string `json:"text"`
	RecipientID string `json:"recipient_id,omitempty"`
}

// TypingData is a typing indicator from the client.
type TypingData struct {
	ContextID string `json:"context_id"`
	IsTyping  bool   `json:"is_typing"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// User is a participant as seen by clients.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsOnline bool   `json:"is_online"`
}

// EventGlobalMessage is delivered to every connected user.
type EventGlobalMessage struct {
	ID     string `json:"id"`
	Sender User   `json:"sender"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}

// EventPrivateMessage is delivered to both ends of a private conversation.
type EventPrivateMessage struct {
	ID        string `json:"id"`
	Sender    User   `json:"sender"`
	Recipient User   `json:"recipient"`
	Text      string `json:"text"`
	TS        int64  `json:"ts"`
}

// EventPresence notifies that a user came online or went offline.
type EventPresence struct {
	User     User  `json:"user"`
	IsOnline bool  `json:"is_online"`
	TS       int64 `json:"ts"`
}

// EventTyping relays a typing indicator.
type EventTyping struct {
	User      User   `json:"user"`
	ContextID string `json:"context_id"`
	IsTyping  bool   `json:"is_typing"`
	TS        int64  `json:"ts"`
}

// EventUserList is a snapshot of online users.
type EventUserList struct {
	Users []User `json:"users"`
}

// AckData acknowledges an accepted message.
type AckData struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
