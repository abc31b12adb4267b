package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Store manages content items in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a content store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create validates and inserts an item, assigning its id and creation time.
func (s *Store) Create(ctx context.Context, it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	if _, err := uuid.Parse(it.AuthorID); err != nil {
		return fmt.Errorf("%w: author id %q", ErrInvalid, it.AuthorID)
	}

	it.ID = uuid.NewString()
	const query = `
		INSERT INTO content_items (id, type, parent_id, college_id, author_id, title, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := s.db.QueryRowContext(ctx, query,
		it.ID, it.Type, it.ParentID, it.CollegeID, it.AuthorID, it.Title, it.Body,
	).Scan(&it.CreatedAt)
	if err != nil {
		return fmt.Errorf("content: insert: %w", err)
	}
	return nil
}

// Exists reports whether an item of the given type and id is stored.
func (s *Store) Exists(ctx context.Context, t Type, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil || !t.Stored() {
		return false, nil
	}
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM content_items WHERE id = $1 AND type = $2)`, id, t).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("content: exists: %w", err)
	}
	return ok, nil
}

// AuthorOf returns the id of the user responsible for a content item. A
// profile's author is the profile owner, whose id is the content id; the
// owner must exist.
func (s *Store) AuthorOf(ctx context.Context, t Type, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	if t == TypeProfile {
		return s.profileOwner(ctx, id)
	}
	if !t.Stored() {
		return "", ErrNotFound
	}

	var author string
	err := s.db.QueryRowContext(ctx,
		`SELECT author_id FROM content_items WHERE id = $1 AND type = $2`, id, t).Scan(&author)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("content: author: %w", err)
	}
	return author, nil
}

func (s *Store) profileOwner(ctx context.Context, id string) (string, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return "", fmt.Errorf("content: profile owner: %w", err)
	}
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

// Delete removes an item together with the answers and comments beneath it.
func (s *Store) Delete(ctx context.Context, t Type, id string) error {
	if _, err := uuid.Parse(id); err != nil || !t.Stored() {
		return ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("content: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1 AND type = $2`, id, t)
	if err != nil {
		return fmt.Errorf("content: delete: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("content: delete: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}

	// Direct children, plus comments on answers of a deleted question.
	const children = `
		WITH answers AS (
			SELECT id::text AS id FROM content_items WHERE parent_id = $1
		)
		DELETE FROM content_items
		WHERE parent_id = $1 OR parent_id IN (SELECT id FROM answers)`
	if _, err := tx.ExecContext(ctx, children, id); err != nil {
		return fmt.Errorf("content: delete children: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("content: commit: %w", err)
	}
	return nil
}
