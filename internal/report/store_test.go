package report

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/database/dbtest"
)

func TestStore_Lifecycle(t *testing.T) {
	store := NewStore(dbtest.Open(t, "reports"))
	ledger := NewLedger(store, nil)
	ctx := context.Background()

	f := validFiling()
	f.ContentID = uuid.NewString()
	r, err := ledger.File(ctx, f)
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	if r.ID == "" || r.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", r)
	}

	if n, _ := store.CountPending(ctx); n != 1 {
		t.Errorf("CountPending() = %d, want 1", n)
	}

	resolved, err := store.MarkResolved(ctx, r.ID, ResolutionSuspended, "admin-1")
	if err != nil {
		t.Fatalf("MarkResolved() error: %v", err)
	}
	if resolved.Status != StatusResolved || resolved.Resolution == nil || *resolved.Resolution != ResolutionSuspended {
		t.Errorf("unexpected resolved report: %+v", resolved)
	}
	if resolved.ResolvedAt == nil || resolved.ResolvedBy != "admin-1" {
		t.Errorf("expected audit fields, got %+v", resolved)
	}

	if _, err := store.MarkResolved(ctx, r.ID, ResolutionDismissed, "admin-2"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second MarkResolved() = %v, want ErrAlreadyResolved", err)
	}

	got, _ := store.Get(ctx, r.ID)
	if *got.Resolution != ResolutionSuspended {
		t.Errorf("second resolution must not overwrite the first, got %s", *got.Resolution)
	}

	all, err := store.List(ctx, "")
	if err != nil || len(all) != 1 {
		t.Fatalf("List(all) = %d reports, %v", len(all), err)
	}
	pending, _ := store.List(ctx, StatusPending)
	if len(pending) != 0 {
		t.Errorf("expected no pending reports, got %d", len(pending))
	}
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(dbtest.Open(t, "reports"))
	ctx := context.Background()

	if _, err := store.Get(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = %v, want ErrNotFound", err)
	}
	if _, err := store.MarkResolved(ctx, "not-a-uuid", ResolutionDismissed, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkResolved() = %v, want ErrNotFound", err)
	}
}

func TestStore_ProfileReport(t *testing.T) {
	store := NewStore(dbtest.Open(t, "reports"))
	r := &Report{
		ContentID:   uuid.NewString(),
		ContentType: content.TypeProfile,
		Category:    "impersonation",
		Description: "fake account",
		ReporterID:  uuid.NewString(),
		Status:      StatusPending,
	}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
}
