// Package suspension enforces and applies user suspensions.
//
// Expiry is lazy: nothing sweeps expired suspensions in the background.
// Evaluate decides, for a user and an instant, whether a request may proceed
// and whether the stored suspension has run out and must be cleared; Guard
// applies that decision on every authenticated request.
package suspension

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/campusqa/moderation/internal/metrics"
	"github.com/campusqa/moderation/internal/user"
)

// Decision is the outcome of evaluating a user's suspension state.
type Decision struct {
	Allow     bool
	Permanent bool
	EndsAt    *time.Time
	Remaining time.Duration
	// Clear is set when a temporary suspension has expired and the user
	// record must be reset.
	Clear bool
}

// Evaluate decides whether u may proceed at now:
//
//  1. permanent suspension: reject
//  2. suspended until a future instant: reject with the remaining time
//  3. suspended until now or earlier: allow and clear
//  4. otherwise: allow
//
// A suspended flag without an end time and without the permanent flag falls
// through to case 4.
func Evaluate(u *user.User, now time.Time) Decision {
	switch {
	case u.IsPermanentlySuspended:
		return Decision{Permanent: true}
	case u.IsSuspended && u.SuspensionEndsAt != nil && now.Before(*u.SuspensionEndsAt):
		return Decision{EndsAt: u.SuspensionEndsAt, Remaining: u.SuspensionEndsAt.Sub(now)}
	case u.IsSuspended && u.SuspensionEndsAt != nil:
		return Decision{Allow: true, Clear: true}
	default:
		return Decision{Allow: true}
	}
}

// SuspendedError is returned by Guard.Check for a suspended user.
type SuspendedError struct {
	Permanent bool
	EndsAt    *time.Time
	Remaining time.Duration
	Reason    string
}

func (e *SuspendedError) Error() string {
	if e.Permanent {
		return "Your account has been permanently suspended."
	}
	return fmt.Sprintf("Your account is suspended until %s (%s remaining).",
		e.EndsAt.UTC().Format(time.RFC3339), FormatRemaining(e.Remaining))
}

// FormatRemaining renders a remaining suspension time in days, hours and
// minutes, rounding up to the next minute.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	days, mins := mins/(24*60), mins%(24*60)
	hours, mins := mins/60, mins%60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// StateWriter persists a user's suspension fields.
type StateWriter interface {
	SaveSuspension(ctx context.Context, userID string, st user.SuspensionState) error
}

// Guard rejects requests from suspended users and clears expired
// suspensions.
type Guard struct {
	users StateWriter
	now   func() time.Time
}

// NewGuard creates a Guard that writes cleared suspensions to users.
func NewGuard(users StateWriter) *Guard {
	return &Guard{users: users, now: time.Now}
}

// Check returns a *SuspendedError if u may not proceed. When u's suspension
// has expired the cleared state is persisted and u is updated in place.
func (g *Guard) Check(ctx context.Context, u *user.User) error {
	d := Evaluate(u, g.now())

	switch {
	case d.Permanent:
		metrics.SuspensionChecks.WithLabelValues("permanent").Inc()
		return &SuspendedError{Permanent: true, Reason: u.SuspensionReason}
	case !d.Allow:
		metrics.SuspensionChecks.WithLabelValues("temporary").Inc()
		return &SuspendedError{EndsAt: d.EndsAt, Remaining: d.Remaining, Reason: u.SuspensionReason}
	case d.Clear:
		if err := g.users.SaveSuspension(ctx, u.ID, user.SuspensionState{}); err != nil {
			return fmt.Errorf("suspension: clear expired: %w", err)
		}
		log.Printf("[guard] cleared expired suspension for user %s", u.ID)
		u.IsSuspended, u.SuspensionEndsAt, u.SuspensionReason = false, nil, ""
		metrics.SuspensionChecks.WithLabelValues("expired").Inc()
		return nil
	default:
		metrics.SuspensionChecks.WithLabelValues("allowed").Inc()
		return nil
	}
}
