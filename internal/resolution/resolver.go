// Package resolution carries out moderator decisions: closing reports,
// suspending and reinstating users, and deleting content.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/metrics"
	"github.com/campusqa/moderation/internal/report"
	"github.com/campusqa/moderation/internal/suspension"
	"github.com/campusqa/moderation/internal/user"
)

// ErrSelfAction is returned when a moderator targets their own account.
var ErrSelfAction = errors.New("resolution: moderators cannot suspend themselves")

// Reports reads and resolves reports.
type Reports interface {
	Get(ctx context.Context, id string) (*report.Report, error)
	MarkResolved(ctx context.Context, id string, res report.Resolution, by string) (*report.Report, error)
}

// Content looks up authors and deletes items.
type Content interface {
	AuthorOf(ctx context.Context, t content.Type, id string) (string, error)
	Delete(ctx context.Context, t content.Type, id string) error
}

// Suspensions applies and lifts suspensions.
type Suspensions interface {
	Suspend(ctx context.Context, userID string, opts suspension.Options) (user.SuspensionState, error)
	Lift(ctx context.Context, userID string) error
}

// Events receives moderation events.
type Events interface {
	Emit(ev messaging.Event)
}

// Resolver is the moderator-facing workflow.
type Resolver struct {
	reports     Reports
	content     Content
	suspensions Suspensions
	events      Events
}

// NewResolver creates a Resolver. events may be nil.
func NewResolver(reports Reports, c Content, s Suspensions, events Events) *Resolver {
	return &Resolver{reports: reports, content: c, suspensions: s, events: events}
}

// Resolve moves a pending report to resolved. For ResolutionSuspended the
// author of the reported content is suspended first, so a failed suspension
// leaves the report pending and the moderator can retry. Resolving a report
// that is already resolved returns report.ErrAlreadyResolved.
func (r *Resolver) Resolve(ctx context.Context, req report.ResolveReport) (*report.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rep, err := r.reports.Get(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	if rep.Status != report.StatusPending {
		return nil, report.ErrAlreadyResolved
	}

	var (
		target string
		state  user.SuspensionState
	)
	if req.Resolution == report.ResolutionSuspended {
		target, err = r.reportedUser(ctx, rep)
		if err != nil {
			return nil, err
		}
		if target == req.ResolvedBy {
			return nil, ErrSelfAction
		}
		state, err = r.suspensions.Suspend(ctx, target, suspension.Options{
			Duration:  req.SuspensionDuration.Std(),
			Permanent: req.Permanent,
			Reason:    rep.Category,
		})
		if err != nil {
			return nil, fmt.Errorf("resolution: suspend author: %w", err)
		}
	}

	updated, err := r.reports.MarkResolved(ctx, rep.ID, req.Resolution, req.ResolvedBy)
	if err != nil {
		return nil, err
	}

	metrics.ReportsResolved.WithLabelValues(string(req.Resolution)).Inc()
	log.Printf("[resolver] report %s resolved as %s by %s", rep.ID, req.Resolution, req.ResolvedBy)

	ev := messaging.NewEvent(messaging.EventReportResolved)
	ev.ActorID = req.ResolvedBy
	ev.ReportID = rep.ID
	ev.ContentID = rep.ContentID
	ev.ContentType = string(rep.ContentType)
	ev.Resolution = string(req.Resolution)
	r.emit(ev)

	if target != "" {
		r.emit(suspendedEvent(req.ResolvedBy, target, state))
	}
	return updated, nil
}

// reportedUser returns the user to suspend for a report: the author recorded
// at filing time, or the current author of the content.
func (r *Resolver) reportedUser(ctx context.Context, rep *report.Report) (string, error) {
	if rep.ReportedUserID != "" {
		return rep.ReportedUserID, nil
	}
	author, err := r.content.AuthorOf(ctx, rep.ContentType, rep.ContentID)
	if err != nil {
		return "", fmt.Errorf("resolution: reported content: %w", err)
	}
	return author, nil
}

// SuspendUser suspends a user directly, outside the report workflow.
func (r *Resolver) SuspendUser(ctx context.Context, actorID, userID string, opts suspension.Options) (user.SuspensionState, error) {
	if userID == actorID {
		return user.SuspensionState{}, ErrSelfAction
	}
	st, err := r.suspensions.Suspend(ctx, userID, opts)
	if err != nil {
		return st, err
	}
	r.emit(suspendedEvent(actorID, userID, st))
	return st, nil
}

// ReinstateUser lifts any suspension on a user.
func (r *Resolver) ReinstateUser(ctx context.Context, actorID, userID string) error {
	if err := r.suspensions.Lift(ctx, userID); err != nil {
		return err
	}
	ev := messaging.NewEvent(messaging.EventUserReinstated)
	ev.ActorID = actorID
	ev.UserID = userID
	r.emit(ev)
	return nil
}

// DeleteContent removes a question, answer or comment through the content
// store. Profiles cannot be deleted here.
func (r *Resolver) DeleteContent(ctx context.Context, actorID string, t content.Type, id string) error {
	if !t.Stored() {
		return fmt.Errorf("%w: cannot delete content of type %q", content.ErrInvalid, t)
	}
	if err := r.content.Delete(ctx, t, id); err != nil {
		return err
	}

	metrics.ContentDeleted.WithLabelValues(string(t)).Inc()
	log.Printf("[resolver] %s %s deleted by %s", t, id, actorID)

	ev := messaging.NewEvent(messaging.EventContentDeleted)
	ev.ActorID = actorID
	ev.ContentID = id
	ev.ContentType = string(t)
	r.emit(ev)
	return nil
}

func (r *Resolver) emit(ev messaging.Event) {
	if r.events != nil {
		r.events.Emit(ev)
	}
}

func suspendedEvent(actorID, userID string, st user.SuspensionState) messaging.Event {
	ev := messaging.NewEvent(messaging.EventUserSuspended)
	ev.ActorID = actorID
	ev.UserID = userID
	ev.Until = st.EndsAt
	ev.Permanent = st.IsPermanentlySuspended
	return ev
}
