// Package report records reports filed against content and their resolution
// by moderators. Reports are never deleted; resolving one is the only
// mutation and it happens at most once.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/metrics"
)

// Status is the lifecycle state of a report.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
)

// Resolution is the terminal disposition a moderator assigns to a report.
type Resolution string

const (
	ResolutionFalseReport Resolution = "false_report"
	ResolutionSuspended   Resolution = "suspended"
	ResolutionDismissed   Resolution = "dismissed"
	ResolutionEscalated   Resolution = "escalated"
)

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionFalseReport, ResolutionSuspended, ResolutionDismissed, ResolutionEscalated:
		return true
	}
	return false
}

var (
	// ErrInvalid is returned when a filing or resolution request fails
	// validation.
	ErrInvalid = errors.New("report: invalid request")
	// ErrNotFound is returned when a report id does not exist.
	ErrNotFound = errors.New("report: not found")
	// ErrAlreadyResolved is returned when resolving a report that is no
	// longer pending.
	ErrAlreadyResolved = errors.New("report: already resolved")
)

// Report is a user-filed flag against a content item.
type Report struct {
	ID          string       `json:"id"`
	ContentID   string       `json:"contentId"`
	ContentType content.Type `json:"contentType"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	ReporterID  string       `json:"reporterId"`
	Status      Status       `json:"status"`
	Resolution  *Resolution  `json:"resolution"`
	ResolvedBy  string       `json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time   `json:"resolvedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`

	// ReportedUserID is the content author at filing time, kept so the
	// author can still be suspended after the content is deleted.
	ReportedUserID string `json:"reportedUserId,omitempty"`
}

// FileReport is a user's request to flag a content item.
type FileReport struct {
	ContentID   string       `json:"contentId"`
	ContentType content.Type `json:"contentType"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	ReporterID  string       `json:"-"`
}

// Validate trims the free-text fields and checks that every required field
// is present.
func (f *FileReport) Validate() error {
	f.ContentID = strings.TrimSpace(f.ContentID)
	f.Category = strings.TrimSpace(f.Category)
	f.Description = strings.TrimSpace(f.Description)

	switch {
	case f.ContentID == "":
		return fmt.Errorf("%w: contentId is required", ErrInvalid)
	case !f.ContentType.Valid():
		return fmt.Errorf("%w: contentType must be one of question, answer, comment, profile", ErrInvalid)
	case f.Category == "":
		return fmt.Errorf("%w: category is required", ErrInvalid)
	case f.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalid)
	case f.ReporterID == "":
		return fmt.Errorf("%w: reporter is required", ErrInvalid)
	}
	return nil
}

// ResolveReport is a moderator's request to close a pending report.
// SuspensionDuration and Permanent apply only to ResolutionSuspended; a zero
// duration selects the default.
type ResolveReport struct {
	ReportID           string     `json:"-"`
	Resolution         Resolution `json:"resolution"`
	SuspensionDuration Duration   `json:"suspensionDuration,omitempty"`
	Permanent          bool       `json:"permanent,omitempty"`
	ResolvedBy         string     `json:"-"`
}

// Validate checks the resolution kind and suspension options.
func (r *ResolveReport) Validate() error {
	if r.ReportID == "" {
		return fmt.Errorf("%w: report id is required", ErrInvalid)
	}
	if !r.Resolution.Valid() {
		return fmt.Errorf("%w: resolution must be one of false_report, suspended, dismissed, escalated", ErrInvalid)
	}
	if r.SuspensionDuration < 0 {
		return fmt.Errorf("%w: suspensionDuration must be positive", ErrInvalid)
	}
	return nil
}

// Repository persists reports.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context, status Status) ([]Report, error)
	MarkResolved(ctx context.Context, id string, res Resolution, by string) (*Report, error)
}

// AuthorLookup resolves the user responsible for a content item.
type AuthorLookup interface {
	AuthorOf(ctx context.Context, t content.Type, id string) (string, error)
}

// Ledger files and lists reports.
type Ledger struct {
	repo    Repository
	authors AuthorLookup
}

// NewLedger creates a ledger over repo. authors may be nil, in which case
// reports are filed without recording the reported user.
func NewLedger(repo Repository, authors AuthorLookup) *Ledger {
	return &Ledger{repo: repo, authors: authors}
}

// File validates req and appends a new pending report. Reports against the
// same content are not deduplicated.
func (l *Ledger) File(ctx context.Context, req FileReport) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var reported string
	if l.authors != nil {
		author, err := l.authors.AuthorOf(ctx, req.ContentType, req.ContentID)
		if err != nil {
			return nil, err
		}
		reported = author
	}

	r := &Report{
		ContentID:      req.ContentID,
		ContentType:    req.ContentType,
		Category:       req.Category,
		Description:    req.Description,
		ReporterID:     req.ReporterID,
		ReportedUserID: reported,
		Status:         StatusPending,
	}
	if err := l.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	metrics.ReportsFiled.WithLabelValues(string(r.ContentType)).Inc()
	return r, nil
}

// ListPending returns pending reports, newest first.
func (l *Ledger) ListPending(ctx context.Context) ([]Report, error) {
	return l.repo.List(ctx, StatusPending)
}

// List returns reports with the given status, newest first. An empty status
// lists every report.
func (l *Ledger) List(ctx context.Context, status Status) ([]Report, error) {
	switch status {
	case "", StatusPending, StatusResolved:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	return l.repo.List(ctx, status)
}

// Get returns a single report.
func (l *Ledger) Get(ctx context.Context, id string) (*Report, error) {
	return l.repo.Get(ctx, id)
}
