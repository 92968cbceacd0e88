package core

import (
	"time"

	"github.com/rs/zerolog"
)

// Presence turns registry membership changes into PresenceUpdate events.
// It keeps no state of its own.
type Presence struct {
	registry *Registry
	log      *zerolog.Logger
	now      func() time.Time
}

// NewPresence builds a presence tracker over registry.
func NewPresence(registry *Registry, logger *zerolog.Logger) *Presence {
	return &Presence{registry: registry, log: logger, now: time.Now}
}

// Online tells every session except s that s's user came online.
func (p *Presence) Online(s *Session) {
	u := s.User
	u.IsOnline = true
	ev := &PresenceUpdate{User: u, IsOnline: true, Timestamp: p.now()}

	p.registry.ForEach(func(other *Session) {
		if other == s {
			return
		}
		other.Deliver(ev)
	})
	p.log.Debug().Str("user_id", u.ID).Msg("presence online")
}

// Offline tells every remaining session that u went offline.
func (p *Presence) Offline(u User) {
	u.IsOnline = false
	ev := &PresenceUpdate{User: u, IsOnline: false, Timestamp: p.now()}

	p.registry.ForEach(func(other *Session) {
		other.Deliver(ev)
	})
	p.log.Debug().Str("user_id", u.ID).Msg("presence offline")
}
