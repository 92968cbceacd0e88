package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/ratelimit"
	"github.com/vovakirdan/chatrelay/internal/store"
	"github.com/vovakirdan/chatrelay/internal/utils"
)

const (
	DefaultMaxMessageRunes = 2000
	DefaultMaxMessageBytes = 4096

	persistTimeout = 5 * time.Second
)

// Store is the persistence the relay needs. store.Store satisfies it.
type Store interface {
	UpsertUser(ctx context.Context, user *store.User) error
	ResolveUser(ctx context.Context, id string) (*store.User, error)
	SaveGlobalMessage(ctx context.Context, msg *store.Message) error
	SavePrivateMessage(ctx context.Context, msg *store.Message) error
}

// Publisher forwards persisted messages to external consumers.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *store.Message) error
}

// Router validates SendMessage requests and delivers the resulting
// messages. Messages are persisted before they are fanned out; a failed
// save is logged and does not stop delivery.
type Router struct {
	registry  *Registry
	store     Store
	publisher Publisher
	limiter   ratelimit.Limiter
	rule      ratelimit.Rule
	maxRunes  int
	maxBytes  int
	log       *zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// NewRouter builds a router. st and publisher may be nil.
func NewRouter(registry *Registry, st Store, publisher Publisher, logger *zerolog.Logger) *Router {
	return &Router{
		registry:  registry,
		store:     st,
		publisher: publisher,
		limiter:   ratelimit.Nop{},
		maxRunes:  DefaultMaxMessageRunes,
		maxBytes:  DefaultMaxMessageBytes,
		log:       logger,
		now:       time.Now,
		newID:     utils.NewMessageID,
	}
}

// SetLimits overrides the message size bounds. Non-positive values keep the
// defaults.
func (r *Router) SetLimits(maxRunes, maxBytes int) {
	if maxRunes > 0 {
		r.maxRunes = maxRunes
	}
	if maxBytes > 0 {
		r.maxBytes = maxBytes
	}
}

// SetRateLimit throttles senders with limiter under rule.
func (r *Router) SetRateLimit(limiter ratelimit.Limiter, rule ratelimit.Rule) {
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	r.limiter = limiter
	r.rule = rule
}

// Send validates msg from sender and delivers it. An empty RecipientID
// broadcasts to every session including the sender; otherwise the message
// goes to the recipient's session, if connected, and is echoed to the
// sender.
func (r *Router) Send(ctx context.Context, sender *Session, msg ClientMessage) (SendResult, error) {
	start := time.Now()
	defer func() { metrics.SendLatency.Observe(time.Since(start).Seconds()) }()

	text, err := r.validate(msg.Text)
	if err != nil {
		return SendResult{}, err
	}
	if err := allow(ctx, r.limiter, sender.User.ID, r.rule, r.log); err != nil {
		return SendResult{}, err
	}

	recipientID := strings.TrimSpace(msg.RecipientID)
	if recipientID == "" {
		return r.sendGlobal(ctx, sender, text), nil
	}
	return r.sendPrivate(ctx, sender, recipientID, text)
}

func (r *Router) validate(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", coreError(ErrCodeInvalidArgument, "message text is empty")
	}
	if !utf8.ValidString(text) {
		return "", coreError(ErrCodeInvalidArgument, "message contains invalid UTF-8")
	}
	if len(text) > r.maxBytes {
		return "", coreError(ErrCodeInvalidArgument, fmt.Sprintf("message exceeds %d byte limit", r.maxBytes))
	}
	if utf8.RuneCountInString(text) > r.maxRunes {
		return "", coreError(ErrCodeInvalidArgument, fmt.Sprintf("message exceeds %d character limit", r.maxRunes))
	}
	return text, nil
}

func (r *Router) sendGlobal(ctx context.Context, sender *Session, text string) SendResult {
	msg := &GlobalMessage{
		ID:        r.newID(),
		Sender:    online(sender.User),
		Text:      text,
		Timestamp: r.now(),
	}

	rec := &store.Message{
		ID:         msg.ID,
		Kind:       store.MessageKindGlobal,
		SenderID:   msg.Sender.ID,
		SenderName: msg.Sender.Name,
		Text:       msg.Text,
		CreatedAt:  msg.Timestamp,
	}
	r.persist(ctx, rec, func(ctx context.Context, st Store) error {
		return st.SaveGlobalMessage(ctx, rec)
	})

	r.registry.ForEach(func(s *Session) {
		s.Deliver(msg)
	})
	metrics.MessagesTotal.WithLabelValues("global").Inc()

	r.log.Debug().Str("message_id", msg.ID).Str("sender", msg.Sender.ID).Msg("global message")
	return SendResult{Success: true, MessageID: msg.ID}
}

func (r *Router) sendPrivate(ctx context.Context, sender *Session, recipientID, text string) (SendResult, error) {
	recipient, err := r.resolve(ctx, recipientID)
	if err != nil {
		return SendResult{}, err
	}

	msg := &PrivateMessage{
		ID:        r.newID(),
		Sender:    online(sender.User),
		Recipient: recipient,
		Text:      text,
		Timestamp: r.now(),
	}

	rec := &store.Message{
		ID:            msg.ID,
		Kind:          store.MessageKindPrivate,
		SenderID:      msg.Sender.ID,
		SenderName:    msg.Sender.Name,
		RecipientID:   msg.Recipient.ID,
		RecipientName: msg.Recipient.Name,
		Text:          msg.Text,
		CreatedAt:     msg.Timestamp,
	}
	r.persist(ctx, rec, func(ctx context.Context, st Store) error {
		return st.SavePrivateMessage(ctx, rec)
	})

	if target, ok := r.registry.Lookup(recipient.ID); ok && target != sender {
		target.Deliver(msg)
	}
	sender.Deliver(msg)
	metrics.MessagesTotal.WithLabelValues("private").Inc()

	r.log.Debug().
		Str("message_id", msg.ID).
		Str("sender", msg.Sender.ID).
		Str("recipient", msg.Recipient.ID).
		Msg("private message")
	return SendResult{Success: true, MessageID: msg.ID}, nil
}

// resolve finds a user that is online, was online, or is known to the
// store. An id nobody has ever used is ErrNotFound.
func (r *Router) resolve(ctx context.Context, id string) (User, error) {
	if s, ok := r.registry.Lookup(id); ok {
		return online(s.User), nil
	}
	if u, ok := r.registry.Known(id); ok {
		return u, nil
	}
	if r.store == nil {
		return User{}, coreError(ErrCodeNotFound, "recipient not found")
	}

	su, err := r.store.ResolveUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return User{}, coreError(ErrCodeNotFound, "recipient not found")
		}
		return User{}, &CoreError{Code: ErrCodeInternal, Message: "resolve recipient", Err: err}
	}
	u := User{ID: su.ID, Name: su.Name}
	r.registry.Remember(u)
	return u, nil
}

// persist saves rec and publishes it. Failures are logged: live delivery
// goes ahead regardless. The save outlives a cancelled caller.
func (r *Router) persist(ctx context.Context, rec *store.Message, save func(context.Context, Store) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if r.store != nil {
		if err := save(ctx, r.store); err != nil {
			metrics.PersistFailures.Inc()
			r.log.Error().
				Err(&CoreError{Code: ErrCodeInternal, Message: "save message", Err: err}).
				Str("message_id", rec.ID).
				Msg("message delivered without being persisted")
		}
	}

	if r.publisher != nil {
		if err := r.publisher.PublishMessage(ctx, rec); err != nil {
			r.log.Warn().Err(err).Str("message_id", rec.ID).Msg("publish message event")
		}
	}
}

func allow(ctx context.Context, limiter ratelimit.Limiter, id string, rule ratelimit.Rule, logger *zerolog.Logger) error {
	if rule.Disabled() {
		return nil
	}
	ok, err := limiter.Allow(ctx, id, rule)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", id).Str("rule", rule.Key).Msg("rate limiter error")
	}
	if !ok {
		return coreError(ErrCodeRateLimited, "too many requests")
	}
	return nil
}

func online(u User) User {
	u.IsOnline = true
	return u
}
