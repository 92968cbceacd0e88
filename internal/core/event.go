package core

import "time"

// EventKind identifies which variant an Event holds.
type EventKind int

const (
	// EventGlobalMessage carries a GlobalMessage.
	EventGlobalMessage EventKind = iota + 1
	// EventPrivateMessage carries a PrivateMessage.
	EventPrivateMessage
	// EventPresence carries a PresenceUpdate.
	EventPresence
	// EventTyping carries a TypingEvent.
	EventTyping
	// EventUserList carries a UserList snapshot.
	EventUserList
)

func (k EventKind) String() string {
	switch k {
	case EventGlobalMessage:
		return "global_message"
	case EventPrivateMessage:
		return "private_message"
	case EventPresence:
		return "presence"
	case EventTyping:
		return "typing"
	case EventUserList:
		return "user_list"
	default:
		return "unknown"
	}
}

// Event is the single envelope multiplexed onto every session's outbound
// stream. It is implemented only by the variant types in this package.
type Event interface {
	Kind() EventKind
	sealed()
}

// PresenceUpdate announces a user going online or offline.
type PresenceUpdate struct {
	User      User
	IsOnline  bool
	Timestamp time.Time
}

// TypingEvent is an ephemeral typing indicator. ContextID is GlobalContext
// or the id of the other party of a private conversation.
type TypingEvent struct {
	User      User
	ContextID string
	IsTyping  bool
	Timestamp time.Time
}

// UserList is a point-in-time view of online users.
type UserList struct {
	Users []User
}

func (*GlobalMessage) Kind() EventKind  { return EventGlobalMessage }
func (*PrivateMessage) Kind() EventKind { return EventPrivateMessage }
func (*PresenceUpdate) Kind() EventKind { return EventPresence }
func (*TypingEvent) Kind() EventKind    { return EventTyping }
func (*UserList) Kind() EventKind       { return EventUserList }

func (*GlobalMessage) sealed()  {}
func (*PrivateMessage) sealed() {}
func (*PresenceUpdate) sealed() {}
func (*TypingEvent) sealed()    {}
func (*UserList) sealed()       {}
