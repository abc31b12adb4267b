package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Store manages reports in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new report store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectReport = `
	SELECT id, content_id, content_type, category, description, reporter_id,
	       reported_user_id, status, resolution, resolved_by, resolved_at, created_at
	FROM reports`

// Create inserts a report, assigning its id and creation time.
func (s *Store) Create(ctx context.Context, r *Report) error {
	r.ID = uuid.NewString()
	const query = `
		INSERT INTO reports (id, content_id, content_type, category, description, reporter_id,
		                     reported_user_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := s.db.QueryRowContext(ctx, query,
		r.ID, r.ContentID, r.ContentType, r.Category, r.Description, r.ReporterID,
		r.ReportedUserID, r.Status,
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("report: insert: %w", err)
	}
	return nil
}

// Get returns the report with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	r, err := scanReport(s.db.QueryRowContext(ctx, selectReport+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("report: get: %w", err)
	}
	return r, nil
}

// List returns reports with the given status, newest first. An empty status
// returns every report.
func (s *Store) List(ctx context.Context, status Status) ([]Report, error) {
	query := selectReport + ` ORDER BY created_at DESC`
	args := []any{}
	if status != "" {
		query = selectReport + ` WHERE status = $1 ORDER BY created_at DESC`
		args = append(args, status)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("report: list: %w", err)
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("report: scan: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CountPending returns the number of reports awaiting review.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("report: count pending: %w", err)
	}
	return n, nil
}

// MarkResolved moves a pending report to resolved. The update is conditional
// on the report still being pending, so of two concurrent resolutions only
// one succeeds; the other gets ErrAlreadyResolved.
func (s *Store) MarkResolved(ctx context.Context, id string, res Resolution, by string) (*Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	const query = `
		UPDATE reports
		SET status = 'resolved', resolution = $2, resolved_by = $3, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, content_id, content_type, category, description, reporter_id,
		          reported_user_id, status, resolution, resolved_by, resolved_at, created_at`

	r, err := scanReport(s.db.QueryRowContext(ctx, query, id, res, by))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report: resolve: %w", err)
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyResolved
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*Report, error) {
	var (
		r          Report
		resolution sql.NullString
		resolvedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.ContentID, &r.ContentType, &r.Category, &r.Description, &r.ReporterID,
		&r.ReportedUserID, &r.Status, &resolution, &r.ResolvedBy, &resolvedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if resolution.Valid {
		res := Resolution(resolution.String)
		r.Resolution = &res
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		r.ResolvedAt = &t
	}
	return &r, nil
}
