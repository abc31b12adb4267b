package suspension

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// OffensePrefix is the Redis key prefix for per-user offense counters.
	OffensePrefix = "offenses:"

	// OffenseWindow is how long an offense counter lives. The window is
	// fixed from the first offense; it does not slide.
	OffenseWindow = 90 * 24 * time.Hour

	// Escalating default suspension lengths.
	FirstOffense  = 24 * time.Hour
	SecondOffense = 7 * 24 * time.Hour
	RepeatOffense = 30 * 24 * time.Hour
)

// escalationDuration returns the default suspension length for the n-th
// offense within the window.
func escalationDuration(n int) time.Duration {
	switch {
	case n <= 1:
		return FirstOffense
	case n == 2:
		return SecondOffense
	default:
		return RepeatOffense
	}
}

// Escalator counts suspensions per user in Redis.
type Escalator struct {
	client redis.Cmdable
}

// NewEscalator creates an Escalator using the provided Redis client.
func NewEscalator(client redis.Cmdable) *Escalator {
	return &Escalator{client: client}
}

// Record increments the user's offense counter and returns the new count.
func (e *Escalator) Record(ctx context.Context, userID string) (int, error) {
	key := OffensePrefix + userID

	count, err := e.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("suspension: offense incr: %w", err)
	}
	if count == 1 {
		if err := e.client.Expire(ctx, key, OffenseWindow).Err(); err != nil {
			return 0, fmt.Errorf("suspension: offense expire: %w", err)
		}
	}
	return int(count), nil
}
