package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User is a persisted chat participant.
type User struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// MessageKind distinguishes global from private messages.
type MessageKind string

const (
	MessageKindGlobal  MessageKind = "global"
	MessageKindPrivate MessageKind = "private"
)

// Message is a persisted chat message. RecipientID is empty for global
// messages.
type Message struct {
	ID            string
	Kind          MessageKind
	SenderID      string
	SenderName    string
	RecipientID   string
	RecipientName string
	Text          string
	CreatedAt     time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// UpsertUser creates the user or refreshes its name and last seen time.
	UpsertUser(ctx context.Context, user *User) error

	// ResolveUser retrieves a user by id. Returns ErrNotFound if unknown.
	ResolveUser(ctx context.Context, id string) (*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveGlobalMessage persists a message addressed to everyone.
	SaveGlobalMessage(ctx context.Context, msg *Message) error

	// SavePrivateMessage persists a message between two users.
	SavePrivateMessage(ctx context.Context, msg *Message) error

	// ListGlobalMessages returns the newest global messages, oldest first.
	ListGlobalMessages(ctx context.Context, limit int) ([]*Message, error)

	// ListPrivateMessages returns the newest messages exchanged between
	// two users in either direction, oldest first.
	ListPrivateMessages(ctx context.Context, userID, peerID string, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
