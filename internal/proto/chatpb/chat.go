package chatpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Empty carries no fields.
type Empty struct{}

func (*Empty) appendTo(b []byte) []byte   { return b }
func (m *Empty) Marshal() ([]byte, error) { return nil, nil }

func (m *Empty) Unmarshal(b []byte) error {
	return walk(b, func(field) error { return nil })
}

// User is a chat participant.
type User struct {
	ID       string
	Name     string
	IsOnline bool
}

func (m *User) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	b = appendString(b, 2, m.Name)
	return appendBool(b, 3, m.IsOnline)
}

func (m *User) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *User) Unmarshal(b []byte) error {
	*m = User{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			return f.asString(&m.ID)
		case 2:
			return f.asString(&m.Name)
		case 3:
			return f.asBool(&m.IsOnline)
		}
		return nil
	})
}

// UserList is a snapshot of online users.
type UserList struct {
	Users []*User
}

func (m *UserList) appendTo(b []byte) []byte {
	for _, u := range m.Users {
		if u == nil {
			u = &User{}
		}
		b = appendMessage(b, 1, u)
	}
	return b
}

func (m *UserList) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *UserList) Unmarshal(b []byte) error {
	*m = UserList{}
	return walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		u := &User{}
		if err := f.asMessage(u); err != nil {
			return err
		}
		m.Users = append(m.Users, u)
		return nil
	})
}

// AuthRequest identifies the client opening a stream.
type AuthRequest struct {
	ClientID string
}

func (m *AuthRequest) appendTo(b []byte) []byte { return appendString(b, 1, m.ClientID) }
func (m *AuthRequest) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *AuthRequest) Unmarshal(b []byte) error {
	*m = AuthRequest{}
	return walk(b, func(f field) error {
		if f.num == 1 {
			return f.asString(&m.ClientID)
		}
		return nil
	})
}

// ClientMessage is a message submitted by a client. An empty RecipientID
// addresses the global room.
type ClientMessage struct {
	Text        string
	RecipientID string
}

func (m *ClientMessage) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.Text)
	return appendString(b, 2, m.RecipientID)
}

func (m *ClientMessage) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *ClientMessage) Unmarshal(b []byte) error {
	*m = ClientMessage{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			return f.asString(&m.Text)
		case 2:
			return f.asString(&m.RecipientID)
		}
		return nil
	})
}

// SendMessageResponse acknowledges an accepted message.
type SendMessageResponse struct {
	Success   bool
	MessageID string
}

func (m *SendMessageResponse) appendTo(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	return appendString(b, 2, m.MessageID)
}

func (m *SendMessageResponse) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *SendMessageResponse) Unmarshal(b []byte) error {
	*m = SendMessageResponse{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			return f.asBool(&m.Success)
		case 2:
			return f.asString(&m.MessageID)
		}
		return nil
	})
}

// GlobalMessage is a message delivered to every connected user.
// Timestamp is in Unix milliseconds.
type GlobalMessage struct {
	ID        string
	Sender    *User
	Text      string
	Timestamp int64
}

func (m *GlobalMessage) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	if m.Sender != nil {
		b = appendMessage(b, 2, m.Sender)
	}
	b = appendString(b, 3, m.Text)
	return appendInt64(b, 4, m.Timestamp)
}

func (m *GlobalMessage) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *GlobalMessage) Unmarshal(b []byte) error {
	*m = GlobalMessage{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			return f.asString(&m.ID)
		case 2:
			m.Sender = &User{}
			return f.asMessage(m.Sender)
		case 3:
			return f.asString(&m.Text)
		case 4:
			return f.asInt64(&m.Timestamp)
		}
		return nil
	})
}

// PrivateMessage is a message between two users.
type PrivateMessage struct {
	ID        string
	Sender    *User
	Recipient *User
	Text      string
	Timestamp int64
}

func (m *PrivateMessage) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	if m.Sender != nil {
		b = appendMessage(b, 2, m.Sender)
	}
	if m.Recipient != nil {
		b = appendMessage(b, 3, m.Recipient)
	}
	b = appendString(b, 4, m.Text)
	return appendInt64(b, 5, m.Timestamp)
}

func (m *PrivateMessage) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *PrivateMessage) Unmarshal(b []byte) error {
	*m = PrivateMessage{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			return f.asString(&m.ID)
		case 2:
			m.Sender = &User{}
			return f.asMessage(m.Sender)
		case 3:
			m.Recipient = &User{}
			return f.asMessage(m.Recipient)
		case 4:
			return f.asString(&m.Text)
		case 5:
			return f.asInt64(&m.Timestamp)
		}
		return nil
	})
}

// UserPresenceUpdate reports a user going online or offline.
type UserPresenceUpdate struct {
	User      *User
	IsOnline  bool
	Timestamp int64
}

func (m *UserPresenceUpdate) appendTo(b []byte) []byte {
	if m.User != nil {
		b = appendMessage(b, 1, m.User)
	}
	b = appendBool(b, 2, m.IsOnline)
	return appendInt64(b, 3, m.Timestamp)
}

func (m *UserPresenceUpdate) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *UserPresenceUpdate) Unmarshal(b []byte) error {
	*m = UserPresenceUpdate{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.User = &User{}
			return f.asMessage(m.User)
		case 2:
			return f.asBool(&m.IsOnline)
		case 3:
			return f.asInt64(&m.Timestamp)
		}
		return nil
	})
}

// TypingEvent is a typing indicator. ContextID is "global" or a user id.
type TypingEvent struct {
	User      *User
	ContextID string
	IsTyping  bool
	Timestamp int64
}

func (m *TypingEvent) appendTo(b []byte) []byte {
	if m.User != nil {
		b = appendMessage(b, 1, m.User)
	}
	b = appendString(b, 2, m.ContextID)
	b = appendBool(b, 3, m.IsTyping)
	return appendInt64(b, 4, m.Timestamp)
}

func (m *TypingEvent) Marshal() ([]byte, error) { return m.appendTo(nil), nil }

func (m *TypingEvent) Unmarshal(b []byte) error {
	*m = TypingEvent{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.User = &User{}
			return f.asMessage(m.User)
		case 2:
			return f.asString(&m.ContextID)
		case 3:
			return f.asBool(&m.IsTyping)
		case 4:
			return f.asInt64(&m.Timestamp)
		}
		return nil
	})
}

// Payload is the oneof of ServerMessage. It is implemented by
// *GlobalMessage, *PrivateMessage, *UserPresenceUpdate, *TypingEvent and
// *UserList.
type Payload interface {
	Message
	appender
	payloadField() protowire.Number
}

func (*GlobalMessage) payloadField() protowire.Number      { return 1 }
func (*PrivateMessage) payloadField() protowire.Number     { return 2 }
func (*UserPresenceUpdate) payloadField() protowire.Number { return 3 }
func (*TypingEvent) payloadField() protowire.Number        { return 4 }
func (*UserList) payloadField() protowire.Number           { return 5 }

// ServerMessage is one event pushed on a ChatStream.
type ServerMessage struct {
	Payload Payload
}

func (m *ServerMessage) appendTo(b []byte) []byte {
	if isNilPayload(m.Payload) {
		return b
	}
	return appendMessage(b, m.Payload.payloadField(), m.Payload)
}

func (m *ServerMessage) Marshal() ([]byte, error) {
	if isNilPayload(m.Payload) {
		return nil, fmt.Errorf("chatpb: server message without payload")
	}
	return m.appendTo(nil), nil
}

// isNilPayload reports whether p is nil or holds a nil pointer.
func isNilPayload(p Payload) bool {
	switch v := p.(type) {
	case nil:
		return true
	case *GlobalMessage:
		return v == nil
	case *PrivateMessage:
		return v == nil
	case *UserPresenceUpdate:
		return v == nil
	case *TypingEvent:
		return v == nil
	case *UserList:
		return v == nil
	}
	return false
}

// Unmarshal decodes a ServerMessage. If several oneof fields are present the
// last one wins.
func (m *ServerMessage) Unmarshal(b []byte) error {
	*m = ServerMessage{}
	return walk(b, func(f field) error {
		var p Payload
		switch f.num {
		case 1:
			p = &GlobalMessage{}
		case 2:
			p = &PrivateMessage{}
		case 3:
			p = &UserPresenceUpdate{}
		case 4:
			p = &TypingEvent{}
		case 5:
			p = &UserList{}
		default:
			return nil
		}
		if err := f.asMessage(p); err != nil {
			return err
		}
		m.Payload = p
		return nil
	})
}
