package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/chatrelay/internal/store"
)

const defaultHistoryLimit = 50

// Schema is applied on open; every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id             TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	sender_id      TEXT NOT NULL,
	sender_name    TEXT NOT NULL,
	recipient_id   TEXT,
	recipient_name TEXT,
	text           TEXT NOT NULL,
	created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_kind_created ON messages(kind, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, recipient_id, created_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file or ":memory:".
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps one
	// :memory: database alive for the store's lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// UpsertUser creates the user or refreshes its name and last seen time.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *store.User) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, name, created_at, last_seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, last_seen_at = excluded.last_seen_at
	`
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Name, now, now); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// ResolveUser retrieves a user by id.
func (s *SQLiteStore) ResolveUser(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, name, created_at, last_seen_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.CreatedAt,
		&user.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== MessageStore implementation ====

// SaveGlobalMessage persists a message addressed to everyone.
func (s *SQLiteStore) SaveGlobalMessage(ctx context.Context, msg *store.Message) error {
	if msg.RecipientID != "" {
		return fmt.Errorf("global message %s has a recipient", msg.ID)
	}
	msg.Kind = store.MessageKindGlobal
	return s.insertMessage(ctx, msg)
}

// SavePrivateMessage persists a message between two users.
func (s *SQLiteStore) SavePrivateMessage(ctx context.Context, msg *store.Message) error {
	if msg.RecipientID == "" {
		return fmt.Errorf("private message %s has no recipient", msg.ID)
	}
	msg.Kind = store.MessageKindPrivate
	return s.insertMessage(ctx, msg)
}

func (s *SQLiteStore) insertMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, kind, sender_id, sender_name, recipient_id, recipient_name, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.Kind,
		msg.SenderID,
		msg.SenderName,
		nullString(msg.RecipientID),
		nullString(msg.RecipientName),
		msg.Text,
		msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListGlobalMessages returns the newest global messages, oldest first.
func (s *SQLiteStore) ListGlobalMessages(ctx context.Context, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, kind, sender_id, sender_name, recipient_id, recipient_name, text, created_at
		FROM messages
		WHERE kind = 'global'
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, normalizeLimit(limit))
}

// ListPrivateMessages returns the newest messages between userID and peerID,
// oldest first.
func (s *SQLiteStore) ListPrivateMessages(ctx context.Context, userID, peerID string, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, kind, sender_id, sender_name, recipient_id, recipient_name, text, created_at
		FROM messages
		WHERE kind = 'private'
		  AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, userID, peerID, peerID, userID, normalizeLimit(limit))
}

func (s *SQLiteStore) listMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var recipientID, recipientName sql.NullString
		if err := rows.Scan(
			&msg.ID,
			&msg.Kind,
			&msg.SenderID,
			&msg.SenderName,
			&recipientID,
			&recipientName,
			&msg.Text,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.RecipientID = recipientID.String
		msg.RecipientName = recipientName.String
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Query is newest first; callers render oldest first.
	slices.Reverse(messages)
	return messages, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultHistoryLimit
	}
	return limit
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
