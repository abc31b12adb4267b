// Package ratelimit provides Redis-backed fixed-window rate limiting using
// INCR + EXPIRE. It throttles per-user actions that write to the moderation
// queue or the content store.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule defines a rate limiting policy: the Redis key prefix, maximum number of
// requests allowed in the window, and the window duration.
type Rule struct {
	Key    string        // Redis key prefix (e.g., "rl:report:")
	Limit  int           // max count in the window
	Window time.Duration // time window
}

var (
	// RuleReport allows 10 reports per hour per user.
	RuleReport = Rule{Key: "rl:report:", Limit: 10, Window: time.Hour}

	// RuleContent allows 30 question, answer or comment submissions per
	// minute per user.
	RuleContent = Rule{Key: "rl:content:", Limit: 30, Window: time.Minute}
)

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed   bool
	Remaining int
}

// Limiter performs rate limiting checks against Redis.
type Limiter struct {
	client redis.Cmdable
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client redis.Cmdable) *Limiter {
	return &Limiter{client: client}
}

// Allow counts one request by identifier against rule. The expiry is set on
// the first increment so the window does not slide.
//
// On Redis errors the request is allowed and the error returned, so that a
// Redis outage does not block legitimate traffic.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (Result, error) {
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[ratelimit] redis INCR error key=%s: %v (failing open)", key, err)
		return Result{Allowed: true, Remaining: rule.Limit}, err
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			log.Printf("[ratelimit] redis EXPIRE error key=%s: %v (failing open)", key, err)
			// Without a TTL the key would persist and block the identifier
			// forever.
			l.client.Del(ctx, key)
			return Result{Allowed: true, Remaining: rule.Limit}, err
		}
	}

	remaining := rule.Limit - int(count)
	if remaining < 0 {
		return Result{Allowed: false}, nil
	}
	return Result{Allowed: true, Remaining: remaining}, nil
}
