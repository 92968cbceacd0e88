package core

import "time"

// GlobalContext is the typing context id and conversation marker of the
// shared room every connected user sees.
const GlobalContext = "global"

// User is a participant known to the relay.
type User struct {
	ID       string
	Name     string
	IsOnline bool
}

// GlobalMessage is a chat message delivered to every connected session.
type GlobalMessage struct {
	ID        string
	Sender    User
	Text      string
	Timestamp time.Time
}

// PrivateMessage is visible only to its sender and recipient.
type PrivateMessage struct {
	ID        string
	Sender    User
	Recipient User
	Text      string
	Timestamp time.Time
}

// ClientMessage is a message submitted by a connected client.
// An empty RecipientID addresses the global conversation.
type ClientMessage struct {
	Text        string
	RecipientID string
}

// SendResult is returned synchronously to the caller of SendMessage.
type SendResult struct {
	Success   bool
	MessageID string
}
