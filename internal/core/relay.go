package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/ratelimit"
)

// Options configures a Relay. Zero values select defaults; Store,
// Publisher and Limiter may be nil.
type Options struct {
	Store           Store
	Publisher       Publisher
	Limiter         ratelimit.Limiter
	MessageRule     ratelimit.Rule
	TypingRule      ratelimit.Rule
	MaxMessageRunes int
	MaxMessageBytes int
	SessionBuffer   int
	Logger          *zerolog.Logger
}

// Relay wires the registry, presence tracker, router, typing coordinator
// and session manager together. Transports talk to the relay only.
type Relay struct {
	Registry *Registry
	Presence *Presence
	Router   *Router
	Typing   *Typing
	Manager  *Manager
}

// NewRelay builds a relay from opts.
func NewRelay(opts Options) *Relay {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	registry := NewRegistry()
	presence := NewPresence(registry, logger)

	router := NewRouter(registry, opts.Store, opts.Publisher, logger)
	router.SetLimits(opts.MaxMessageRunes, opts.MaxMessageBytes)
	router.SetRateLimit(opts.Limiter, opts.MessageRule)

	typing := NewTyping(registry, logger)
	typing.SetRateLimit(opts.Limiter, opts.TypingRule)

	manager := NewManager(registry, presence, opts.Store, logger)
	manager.SetBuffer(opts.SessionBuffer)

	return &Relay{
		Registry: registry,
		Presence: presence,
		Router:   router,
		Typing:   typing,
		Manager:  manager,
	}
}

// SendMessage routes msg on behalf of the live session of userID.
func (r *Relay) SendMessage(ctx context.Context, userID string, msg ClientMessage) (SendResult, error) {
	s, err := r.Manager.Session(userID)
	if err != nil {
		return SendResult{}, err
	}
	return r.Router.Send(ctx, s, msg)
}

// SendTyping relays a typing state change on behalf of userID.
func (r *Relay) SendTyping(ctx context.Context, userID, contextID string, isTyping bool) error {
	s, err := r.Manager.Session(userID)
	if err != nil {
		return err
	}
	return r.Typing.Send(ctx, s, contextID, isTyping)
}

// Users returns the online users.
func (r *Relay) Users() []User {
	return r.Manager.Users()
}
