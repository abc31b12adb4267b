package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/campusqa/moderation/internal/database/dbtest"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     int
		wantErr bool
	}{
		{"valid", "How do I enroll?", MaxTitleChars, false},
		{"empty", "", MaxTitleChars, true},
		{"at limit", strings.Repeat("a", MaxTitleChars), MaxTitleChars, false},
		{"over limit", strings.Repeat("a", MaxTitleChars+1), MaxTitleChars, true},
		{"multibyte at limit", strings.Repeat("é", MaxTitleChars), MaxTitleChars, false},
		{"invalid utf8", "bad \xff byte", MaxTitleChars, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText("title", tt.text, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestItem_Validate(t *testing.T) {
	author := uuid.NewString()
	tests := []struct {
		name    string
		item    Item
		wantErr string
	}{
		{"question", Item{Type: TypeQuestion, AuthorID: author, Title: "t", Body: "b"}, ""},
		{"question without title", Item{Type: TypeQuestion, AuthorID: author, Body: "b"}, "title is empty"},
		{"answer", Item{Type: TypeAnswer, AuthorID: author, ParentID: "q", Body: "b"}, ""},
		{"answer without parent", Item{Type: TypeAnswer, AuthorID: author, Body: "b"}, "requires a parent"},
		{"comment without body", Item{Type: TypeComment, AuthorID: author, ParentID: "a"}, "comment is empty"},
		{"profile not stored", Item{Type: TypeProfile, AuthorID: author, Body: "b"}, "unknown content type"},
		{"missing author", Item{Type: TypeQuestion, Title: "t", Body: "b"}, "author is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestType(t *testing.T) {
	for _, ct := range []Type{TypeQuestion, TypeAnswer, TypeComment, TypeProfile} {
		if !ct.Valid() {
			t.Errorf("%s should be valid", ct)
		}
	}
	if Type("poll").Valid() {
		t.Error("poll should not be valid")
	}
	if TypeProfile.Stored() {
		t.Error("profiles are not stored as content items")
	}
}

func TestStore_CreateAuthorDelete(t *testing.T) {
	store := NewStore(dbtest.Open(t, "content_items"))
	ctx := context.Background()
	author := uuid.NewString()

	q := &Item{Type: TypeQuestion, CollegeID: "c1", AuthorID: author, Title: "Exams", Body: "When are finals?"}
	if err := store.Create(ctx, q); err != nil {
		t.Fatalf("Create(question) error: %v", err)
	}
	a := &Item{Type: TypeAnswer, ParentID: q.ID, AuthorID: uuid.NewString(), Body: "Next week"}
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create(answer) error: %v", err)
	}
	c := &Item{Type: TypeComment, ParentID: a.ID, AuthorID: author, Body: "Thanks"}
	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create(comment) error: %v", err)
	}

	got, err := store.AuthorOf(ctx, TypeQuestion, q.ID)
	if err != nil || got != author {
		t.Fatalf("AuthorOf() = %q, %v; want %q", got, err, author)
	}
	if _, err := store.AuthorOf(ctx, TypeAnswer, q.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("AuthorOf with wrong type: expected ErrNotFound, got %v", err)
	}

	if err := store.Delete(ctx, TypeQuestion, q.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	for _, it := range []*Item{q, a, c} {
		ok, err := store.Exists(ctx, it.Type, it.ID)
		if err != nil {
			t.Fatalf("Exists() error: %v", err)
		}
		if ok {
			t.Errorf("%s %s should have been deleted", it.Type, it.ID)
		}
	}

	if err := store.Delete(ctx, TypeQuestion, q.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() expected ErrNotFound, got %v", err)
	}
}

func TestStore_ProfileAuthor(t *testing.T) {
	db := dbtest.Open(t)
	store := NewStore(db)
	ctx := context.Background()

	owner := uuid.NewString()
	if _, err := db.ExecContext(ctx, `INSERT INTO users (id, name) VALUES ($1, 'profile owner')`, owner); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	t.Cleanup(func() { db.Exec(`DELETE FROM users WHERE id = $1`, owner) })

	got, err := store.AuthorOf(ctx, TypeProfile, owner)
	if err != nil || got != owner {
		t.Errorf("AuthorOf(profile) = %q, %v; want %q", got, err, owner)
	}
	if _, err := store.AuthorOf(ctx, TypeProfile, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("AuthorOf(unknown profile) expected ErrNotFound, got %v", err)
	}
}

func TestStore_BadIDs(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	id := uuid.NewString()

	if _, err := store.AuthorOf(ctx, TypeProfile, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for malformed profile id, got %v", err)
	}
	if _, err := store.AuthorOf(ctx, TypeQuestion, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for malformed id, got %v", err)
	}
	if err := store.Delete(ctx, TypeProfile, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting a profile, got %v", err)
	}
}
