package resolution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/report"
	"github.com/campusqa/moderation/internal/suspension"
	"github.com/campusqa/moderation/internal/user"
)

type fakeReports struct {
	mu      sync.Mutex
	reports map[string]*report.Report
}

func (f *fakeReports) Get(_ context.Context, id string) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReports) MarkResolved(_ context.Context, id string, res report.Resolution, by string) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	if r.Status != report.StatusPending {
		return nil, report.ErrAlreadyResolved
	}
	now := time.Now()
	r.Status, r.Resolution, r.ResolvedBy, r.ResolvedAt = report.StatusResolved, &res, by, &now
	cp := *r
	return &cp, nil
}

type fakeContent struct {
	authors map[string]string
	deleted []string
}

func (f *fakeContent) AuthorOf(_ context.Context, t content.Type, id string) (string, error) {
	if t == content.TypeProfile {
		return id, nil
	}
	a, ok := f.authors[id]
	if !ok {
		return "", content.ErrNotFound
	}
	return a, nil
}

func (f *fakeContent) Delete(_ context.Context, t content.Type, id string) error {
	if _, ok := f.authors[id]; !ok {
		return content.ErrNotFound
	}
	delete(f.authors, id)
	f.deleted = append(f.deleted, string(t)+"/"+id)
	return nil
}

type memUsers map[string]user.SuspensionState

func (m memUsers) SaveSuspension(_ context.Context, id string, st user.SuspensionState) error {
	m[id] = st
	return nil
}

type eventLog []messaging.Event

func (l *eventLog) Emit(ev messaging.Event) { *l = append(*l, ev) }

type fixture struct {
	resolver *Resolver
	reports  *fakeReports
	content  *fakeContent
	users    memUsers
	events   *eventLog
}

func newFixture() *fixture {
	f := &fixture{
		reports: &fakeReports{reports: map[string]*report.Report{
			"r1": {ID: "r1", ContentID: "q1", ContentType: content.TypeQuestion, Category: "harassment", Status: report.StatusPending},
			"r2": {ID: "r2", ContentID: "gone", ContentType: content.TypeAnswer, Category: "spam", ReportedUserID: "author-2", Status: report.StatusPending},
			"r3": {ID: "r3", ContentID: "author-3", ContentType: content.TypeProfile, Category: "impersonation", Status: report.StatusPending},
		}},
		content: &fakeContent{authors: map[string]string{"q1": "author-1"}},
		users:   memUsers{},
		events:  &eventLog{},
	}
	mgr := suspension.NewManager(f.users, nil, 7*24*time.Hour)
	f.resolver = NewResolver(f.reports, f.content, mgr, f.events)
	return f
}

func TestResolve_Suspended(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	got, err := f.resolver.Resolve(ctx, report.ResolveReport{
		ReportID:   "r1",
		Resolution: report.ResolutionSuspended,
		ResolvedBy: "admin",
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Status != report.StatusResolved || *got.Resolution != report.ResolutionSuspended {
		t.Errorf("unexpected report: %+v", got)
	}

	st, ok := f.users["author-1"]
	if !ok || !st.IsSuspended || st.IsPermanentlySuspended || st.EndsAt == nil {
		t.Fatalf("expected a temporary suspension of author-1, got %+v", st)
	}
	if d := time.Until(*st.EndsAt); d < 6*24*time.Hour || d > 7*24*time.Hour {
		t.Errorf("expected default suspension of about 7 days, got %v", d)
	}
	if st.Reason != "harassment" {
		t.Errorf("Reason = %q, want report category", st.Reason)
	}

	if len(*f.events) != 2 || (*f.events)[0].Type != messaging.EventReportResolved || (*f.events)[1].Type != messaging.EventUserSuspended {
		t.Errorf("unexpected events: %+v", *f.events)
	}
}

func TestResolve_SuspendOptions(t *testing.T) {
	tests := []struct {
		name      string
		reportID  string
		req       report.ResolveReport
		wantUser  string
		permanent bool
		length    time.Duration
	}{
		{
			name:      "permanent",
			reportID:  "r1",
			req:       report.ResolveReport{Permanent: true},
			wantUser:  "author-1",
			permanent: true,
		},
		{
			name:     "explicit duration",
			reportID: "r1",
			req:      report.ResolveReport{SuspensionDuration: report.Duration(72 * time.Hour)},
			wantUser: "author-1",
			length:   72 * time.Hour,
		},
		{
			name:     "author recorded at filing survives deletion",
			reportID: "r2",
			wantUser: "author-2",
			length:   7 * 24 * time.Hour,
		},
		{
			name:     "profile report suspends the profile owner",
			reportID: "r3",
			wantUser: "author-3",
			length:   7 * 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := tt.req
			req.ReportID = tt.reportID
			req.Resolution = report.ResolutionSuspended
			req.ResolvedBy = "admin"

			if _, err := f.resolver.Resolve(context.Background(), req); err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			st, ok := f.users[tt.wantUser]
			if !ok || !st.IsSuspended {
				t.Fatalf("expected %s suspended, got %+v", tt.wantUser, f.users)
			}
			if st.IsPermanentlySuspended != tt.permanent {
				t.Errorf("permanent = %v, want %v", st.IsPermanentlySuspended, tt.permanent)
			}
			if !tt.permanent {
				if d := time.Until(*st.EndsAt); d > tt.length || d < tt.length-time.Minute {
					t.Errorf("suspension length %v, want about %v", d, tt.length)
				}
			}
		})
	}
}

func TestResolve_NoSideEffects(t *testing.T) {
	for _, res := range []report.Resolution{report.ResolutionFalseReport, report.ResolutionDismissed, report.ResolutionEscalated} {
		t.Run(string(res), func(t *testing.T) {
			f := newFixture()
			got, err := f.resolver.Resolve(context.Background(), report.ResolveReport{ReportID: "r1", Resolution: res, ResolvedBy: "admin"})
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got.Status != report.StatusResolved {
				t.Errorf("status = %s, want resolved", got.Status)
			}
			if len(f.users) != 0 {
				t.Errorf("%s must not touch user state, got %+v", res, f.users)
			}
		})
	}
}

func TestResolve_Twice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := report.ResolveReport{ReportID: "r1", Resolution: report.ResolutionDismissed, ResolvedBy: "admin"}
	if _, err := f.resolver.Resolve(ctx, req); err != nil {
		t.Fatalf("first Resolve() error: %v", err)
	}

	req.Resolution = report.ResolutionSuspended
	if _, err := f.resolver.Resolve(ctx, req); !errors.Is(err, report.ErrAlreadyResolved) {
		t.Fatalf("second Resolve() = %v, want ErrAlreadyResolved", err)
	}
	if len(f.users) != 0 {
		t.Error("rejected resolution must not suspend anyone")
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  report.ResolveReport
		want error
	}{
		{"unknown report", report.ResolveReport{ReportID: "nope", Resolution: report.ResolutionDismissed}, report.ErrNotFound},
		{"bad resolution", report.ResolveReport{ReportID: "r1", Resolution: "ban"}, report.ErrInvalid},
		{"self suspension", report.ResolveReport{ReportID: "r1", Resolution: report.ResolutionSuspended, ResolvedBy: "author-1"}, ErrSelfAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if _, err := f.resolver.Resolve(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("Resolve() = %v, want %v", err, tt.want)
			}
			if r, _ := f.reports.Get(context.Background(), "r1"); r.Status != report.StatusPending {
				t.Error("failed resolution must leave the report pending")
			}
		})
	}
}

func TestResolve_MissingContentKeepsReportPending(t *testing.T) {
	f := newFixture()
	delete(f.content.authors, "q1")

	_, err := f.resolver.Resolve(context.Background(), report.ResolveReport{
		ReportID: "r1", Resolution: report.ResolutionSuspended, ResolvedBy: "admin",
	})
	if !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("Resolve() = %v, want content.ErrNotFound", err)
	}
	if r, _ := f.reports.Get(context.Background(), "r1"); r.Status != report.StatusPending {
		t.Error("report should stay pending")
	}
}

func TestDeleteContent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.resolver.DeleteContent(ctx, "admin", content.TypeQuestion, "q1"); err != nil {
		t.Fatalf("DeleteContent() error: %v", err)
	}
	if len(f.content.deleted) != 1 || f.content.deleted[0] != "question/q1" {
		t.Errorf("unexpected deletions: %v", f.content.deleted)
	}
	if n := len(*f.events); n != 1 || (*f.events)[0].Type != messaging.EventContentDeleted {
		t.Errorf("expected one content.deleted event, got %+v", *f.events)
	}

	if err := f.resolver.DeleteContent(ctx, "admin", content.TypeQuestion, "q1"); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if err := f.resolver.DeleteContent(ctx, "admin", content.TypeProfile, "u1"); !errors.Is(err, content.ErrInvalid) {
		t.Errorf("profile delete = %v, want ErrInvalid", err)
	}
}

func TestSuspendAndReinstateUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.resolver.SuspendUser(ctx, "admin", "admin", suspension.Options{}); !errors.Is(err, ErrSelfAction) {
		t.Errorf("self suspension = %v, want ErrSelfAction", err)
	}

	st, err := f.resolver.SuspendUser(ctx, "admin", "u9", suspension.Options{Duration: time.Hour})
	if err != nil {
		t.Fatalf("SuspendUser() error: %v", err)
	}
	if !st.IsSuspended || f.users["u9"].EndsAt == nil {
		t.Errorf("expected u9 suspended, got %+v", f.users["u9"])
	}

	if err := f.resolver.ReinstateUser(ctx, "admin", "u9"); err != nil {
		t.Fatalf("ReinstateUser() error: %v", err)
	}
	if f.users["u9"].IsSuspended {
		t.Error("expected u9 reinstated")
	}

	types := []messaging.EventType{messaging.EventUserSuspended, messaging.EventUserReinstated}
	if len(*f.events) != len(types) {
		t.Fatalf("expected %d events, got %+v", len(types), *f.events)
	}
	for i, want := range types {
		if (*f.events)[i].Type != want {
			t.Errorf("event %d = %s, want %s", i, (*f.events)[i].Type, want)
		}
	}
}
