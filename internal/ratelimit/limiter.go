// Package ratelimit throttles per-user actions such as sending messages and
// typing indicators. Two implementations share the Limiter interface: a
// Redis-backed fixed window usable across relay instances, and an
// in-process window for single-node deployments and tests.
package ratelimit

import (
	"context"
	"time"
)

// Rule defines a rate limiting policy: the key prefix, maximum number of
// actions allowed in the window, and the window duration. A rule with a
// non-positive Limit allows everything.
type Rule struct {
	Key    string
	Limit  int
	Window time.Duration
}

// Disabled reports whether the rule never limits.
func (r Rule) Disabled() bool {
	return r.Limit <= 0 || r.Window <= 0
}

// MessageRule builds the rule applied to SendMessage.
func MessageRule(limit int, window time.Duration) Rule {
	return Rule{Key: "rl:msg:", Limit: limit, Window: window}
}

// TypingRule builds the rule applied to SendTyping.
func TypingRule(limit int, window time.Duration) Rule {
	return Rule{Key: "rl:typing:", Limit: limit, Window: window}
}

// Limiter decides whether identifier may perform one more action under rule.
type Limiter interface {
	Allow(ctx context.Context, identifier string, rule Rule) (bool, error)
}

// Nop allows every action.
type Nop struct{}

// Allow always returns true.
func (Nop) Allow(context.Context, string, Rule) (bool, error) {
	return true, nil
}
