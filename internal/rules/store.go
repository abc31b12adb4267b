package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// Store manages restricted words in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new rule store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// List returns every persisted rule in insertion order.
func (s *Store) List(ctx context.Context) ([]Rule, error) {
	const query = `
		SELECT word, category, severity, added_by, created_at
		FROM restricted_words
		ORDER BY created_at, word`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rules: list: %w", err)
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.Word, &r.Category, &r.Severity, &r.AddedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("rules: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rules: list: %w", err)
	}
	return out, nil
}

// Add inserts a rule after normalizing it. A word that is already restricted
// yields ErrDuplicate.
func (s *Store) Add(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Normalize(); err != nil {
		return Rule{}, err
	}

	const query = `
		INSERT INTO restricted_words (word, category, severity, added_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := s.db.QueryRowContext(ctx, query, rule.Word, rule.Category, rule.Severity, rule.AddedBy).Scan(&rule.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return Rule{}, fmt.Errorf("%w: %q", ErrDuplicate, rule.Word)
		}
		return Rule{}, fmt.Errorf("rules: insert: %w", err)
	}
	return rule, nil
}

// Remove deletes a restricted word. Comparison is case-insensitive.
func (s *Store) Remove(ctx context.Context, word string) error {
	const query = `DELETE FROM restricted_words WHERE word = lower(trim($1))`

	res, err := s.db.ExecContext(ctx, query, word)
	if err != nil {
		return fmt.Errorf("rules: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rules: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of persisted rules.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restricted_words`).Scan(&n); err != nil {
		return 0, fmt.Errorf("rules: count: %w", err)
	}
	return n, nil
}

// Seed inserts rules that are not already present, in order, and returns
// how many were added. It runs in one transaction.
func (s *Store) Seed(ctx context.Context, seed []Rule, addedBy string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("rules: seed: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO restricted_words (word, category, severity, added_by, created_at)
		VALUES ($1, $2, $3, $4, NOW() + $5 * INTERVAL '1 microsecond')
		ON CONFLICT (word) DO NOTHING`

	added := 0
	for i, rule := range seed {
		rule.AddedBy = addedBy
		if err := rule.Normalize(); err != nil {
			return 0, err
		}
		// NOW() is fixed within the transaction; offset by index so List
		// returns the seed order.
		res, err := tx.ExecContext(ctx, query, rule.Word, rule.Category, rule.Severity, rule.AddedBy, i)
		if err != nil {
			return 0, fmt.Errorf("rules: seed %q: %w", rule.Word, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("rules: seed commit: %w", err)
	}
	return added, nil
}
