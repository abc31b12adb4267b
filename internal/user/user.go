// Package user holds the moderation-relevant part of a user record and its
// PostgreSQL store. Profile fields are owned elsewhere.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the user's platform role.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleVisitor Role = "visitor"
	RoleAdmin   Role = "admin"
)

// ErrNotFound is returned when a user id does not exist.
var ErrNotFound = errors.New("user: not found")

// User is the authenticated user as seen by the moderation core.
type User struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email,omitempty"`
	Role                   Role       `json:"role"`
	IsSuspended            bool       `json:"isSuspended"`
	IsPermanentlySuspended bool       `json:"isPermanentlySuspended"`
	SuspensionEndsAt       *time.Time `json:"suspensionEndsAt"`
	SuspensionReason       string     `json:"suspensionReason,omitempty"`
}

// IsAdmin reports whether the user may use moderator endpoints.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Suspension returns the user's current suspension fields.
func (u *User) Suspension() SuspensionState {
	return SuspensionState{
		IsSuspended:            u.IsSuspended,
		IsPermanentlySuspended: u.IsPermanentlySuspended,
		EndsAt:                 u.SuspensionEndsAt,
		Reason:                 u.SuspensionReason,
	}
}

// SuspensionState is the set of fields written when a suspension is applied
// or cleared. The zero value is the cleared state.
type SuspensionState struct {
	IsSuspended            bool
	IsPermanentlySuspended bool
	EndsAt                 *time.Time
	Reason                 string
}

// Store reads users and writes their suspension state in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectUser = `
	SELECT id, name, email, role, is_suspended, is_permanently_suspended,
	       suspension_ends_at, suspension_reason
	FROM users`

// Get returns the user with the given id. Ids that are not UUIDs cannot
// exist and yield ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user: get: %w", err)
	}
	return u, nil
}

// SaveSuspension overwrites the suspension fields of a user.
func (s *Store) SaveSuspension(ctx context.Context, id string, st SuspensionState) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	const query = `
		UPDATE users
		SET is_suspended = $2, is_permanently_suspended = $3,
		    suspension_ends_at = $4, suspension_reason = $5
		WHERE id = $1`

	var endsAt sql.NullTime
	if st.EndsAt != nil {
		endsAt = sql.NullTime{Time: st.EndsAt.UTC(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, query, id, st.IsSuspended, st.IsPermanentlySuspended, endsAt, st.Reason)
	if err != nil {
		return fmt.Errorf("user: save suspension: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user: save suspension: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSuspended returns users whose suspension flag is set, permanent
// suspensions first.
func (s *Store) ListSuspended(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, selectUser+`
		WHERE is_suspended
		ORDER BY is_permanently_suspended DESC, suspension_ends_at NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("user: list suspended: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user: scan: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// CountSuspended returns the number of users with the suspension flag set.
func (s *Store) CountSuspended(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_suspended`).Scan(&n); err != nil {
		return 0, fmt.Errorf("user: count suspended: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var (
		u      User
		endsAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsSuspended, &u.IsPermanentlySuspended,
		&endsAt, &u.SuspensionReason)
	if err != nil {
		return nil, err
	}
	if endsAt.Valid {
		t := endsAt.Time.UTC()
		u.SuspensionEndsAt = &t
	}
	return &u, nil
}
