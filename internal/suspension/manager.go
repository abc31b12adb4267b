package suspension

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/campusqa/moderation/internal/metrics"
	"github.com/campusqa/moderation/internal/user"
)

// OffenseCounter records suspensions so default lengths can escalate.
type OffenseCounter interface {
	Record(ctx context.Context, userID string) (int, error)
}

// Options control a single suspension. A zero Duration on a temporary
// suspension selects the escalating default.
type Options struct {
	Duration  time.Duration
	Permanent bool
	Reason    string
}

// Manager applies and lifts suspensions.
type Manager struct {
	users           StateWriter
	offenses        OffenseCounter
	defaultDuration time.Duration
	now             func() time.Time
}

// NewManager creates a Manager. offenses may be nil, in which case every
// default suspension lasts defaultDuration.
func NewManager(users StateWriter, offenses OffenseCounter, defaultDuration time.Duration) *Manager {
	return &Manager{
		users:           users,
		offenses:        offenses,
		defaultDuration: defaultDuration,
		now:             time.Now,
	}
}

// Suspend suspends a user and returns the state that was written.
func (m *Manager) Suspend(ctx context.Context, userID string, opts Options) (user.SuspensionState, error) {
	if opts.Duration < 0 {
		return user.SuspensionState{}, fmt.Errorf("suspension: negative duration %s", opts.Duration)
	}

	st := user.SuspensionState{IsSuspended: true, Reason: opts.Reason}
	kind := "permanent"

	count := m.recordOffense(ctx, userID)
	if opts.Permanent {
		st.IsPermanentlySuspended = true
	} else {
		kind = "temporary"
		d := opts.Duration
		if d == 0 {
			d = m.defaultDuration
			if count > 0 {
				d = escalationDuration(count)
			}
		}
		endsAt := m.now().Add(d).UTC()
		st.EndsAt = &endsAt
	}

	if err := m.users.SaveSuspension(ctx, userID, st); err != nil {
		return user.SuspensionState{}, err
	}

	metrics.Suspensions.WithLabelValues(kind).Inc()
	log.Printf("[suspension] user %s suspended (%s, offense %d)", userID, kind, count)
	return st, nil
}

// Lift clears any suspension on a user.
func (m *Manager) Lift(ctx context.Context, userID string) error {
	if err := m.users.SaveSuspension(ctx, userID, user.SuspensionState{}); err != nil {
		return err
	}
	log.Printf("[suspension] user %s reinstated", userID)
	return nil
}

// recordOffense returns the user's offense count, or 0 when no counter is
// configured or it cannot be reached.
func (m *Manager) recordOffense(ctx context.Context, userID string) int {
	if m.offenses == nil {
		return 0
	}
	n, err := m.offenses.Record(ctx, userID)
	if err != nil {
		log.Printf("[suspension] offense counter unavailable, using default duration: %v", err)
		return 0
	}
	return n
}
