// Package messaging publishes persisted chat messages to NATS so that
// services outside the relay (history indexers, notification senders) can
// follow the conversation without polling the store.
package messaging

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/store"
)

// Subject suffixes appended to the configured prefix.
const (
	SubjectGlobal  = "global"
	SubjectPrivate = "private" // + .<SubjectToken(recipient_id)>
)

// encodedTokenMarker prefixes recipient ids that are not usable as a
// subject token as-is. It is outside the base64url alphabet.
const encodedTokenMarker = "~"

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	SubjectPrefix string        // e.g. "chat"
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "chatrelay",
		SubjectPrefix: "chat",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Event is the JSON document published for every message.
type Event struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	SenderID      string `json:"sender_id"`
	SenderName    string `json:"sender_name"`
	RecipientID   string `json:"recipient_id,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
	Text          string `json:"text"`
	Timestamp     int64  `json:"timestamp"`
}

// Publisher sends message events to NATS subjects.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	log    *zerolog.Logger
}

// Connect dials NATS with cfg and returns a ready publisher.
func Connect(cfg Config, logger *zerolog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats connected")

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "chat"
	}
	return &Publisher{conn: nc, prefix: prefix, log: logger}, nil
}

// Subject returns the subject msg is published on.
func (p *Publisher) Subject(msg *store.Message) string {
	return SubjectFor(p.prefix, msg)
}

// SubjectFor builds the subject for msg under prefix.
func SubjectFor(prefix string, msg *store.Message) string {
	if msg.Kind == store.MessageKindPrivate {
		return prefix + "." + SubjectPrivate + "." + SubjectToken(msg.RecipientID)
	}
	return prefix + "." + SubjectGlobal
}

// SubjectToken maps a client id to a single subject token. Ids that are
// empty, start with "~" or contain '.', '*', '>' or whitespace are
// base64url encoded behind a "~" marker; others are used unchanged.
func SubjectToken(id string) string {
	if id != "" && !strings.HasPrefix(id, encodedTokenMarker) && !strings.ContainsFunc(id, invalidTokenRune) {
		return id
	}
	return encodedTokenMarker + base64.RawURLEncoding.EncodeToString([]byte(id))
}

func invalidTokenRune(r rune) bool {
	switch r {
	case '.', '*', '>':
		return true
	}
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

// PublishMessage encodes msg and publishes it.
func (p *Publisher) PublishMessage(_ context.Context, msg *store.Message) error {
	data, err := json.Marshal(EventFromMessage(msg))
	if err != nil {
		return fmt.Errorf("marshal message event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(msg), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// EventFromMessage maps a stored message to its published form.
func EventFromMessage(msg *store.Message) Event {
	return Event{
		ID:            msg.ID,
		Kind:          string(msg.Kind),
		SenderID:      msg.SenderID,
		SenderName:    msg.SenderName,
		RecipientID:   msg.RecipientID,
		RecipientName: msg.RecipientName,
		Text:          msg.Text,
		Timestamp:     msg.CreatedAt.UnixMilli(),
	}
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn().Err(err).Msg("nats drain")
	}
}
