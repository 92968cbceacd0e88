package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/ratelimit"
)

// Typing relays ephemeral typing indicators. Nothing is persisted and
// undeliverable events are dropped silently.
type Typing struct {
	registry *Registry
	limiter  ratelimit.Limiter
	rule     ratelimit.Rule
	log      *zerolog.Logger
	now      func() time.Time
}

// NewTyping builds a typing coordinator over registry.
func NewTyping(registry *Registry, logger *zerolog.Logger) *Typing {
	return &Typing{
		registry: registry,
		limiter:  ratelimit.Nop{},
		log:      logger,
		now:      time.Now,
	}
}

// SetRateLimit throttles typing events with limiter under rule.
func (t *Typing) SetRateLimit(limiter ratelimit.Limiter, rule ratelimit.Rule) {
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	t.limiter = limiter
	t.rule = rule
}

// Send relays a typing state change of sender. GlobalContext reaches every
// other session; any other context id is the user id of the private peer,
// who receives the event with the sender's id as its context.
func (t *Typing) Send(ctx context.Context, sender *Session, contextID string, isTyping bool) error {
	contextID = strings.TrimSpace(contextID)
	if contextID == "" {
		return coreError(ErrCodeInvalidArgument, "typing context is required")
	}
	if err := allow(ctx, t.limiter, sender.User.ID, t.rule, t.log); err != nil {
		return err
	}
	metrics.TypingEvents.Inc()

	u := online(sender.User)

	if contextID == GlobalContext {
		ev := &TypingEvent{User: u, ContextID: GlobalContext, IsTyping: isTyping, Timestamp: t.now()}
		t.registry.ForEach(func(s *Session) {
			if s == sender {
				return
			}
			s.Deliver(ev)
		})
		return nil
	}

	target, ok := t.registry.Lookup(contextID)
	if !ok || target == sender {
		return nil
	}
	target.Deliver(&TypingEvent{User: u, ContextID: u.ID, IsTyping: isTyping, Timestamp: t.now()})
	return nil
}
