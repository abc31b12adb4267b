// Package dbtest connects tests to a PostgreSQL instance named by
// TEST_DATABASE_URL, skipping the test when none is configured.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/campusqa/moderation/internal/database"
)

// Open returns a migrated database handle and truncates the given tables
// before and after the test.
func Open(t testing.TB, tables ...string) *sql.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Open(context.Background(), url, 4)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if err := database.Migrate(url); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	truncate := func() {
		for _, table := range tables {
			if _, err := db.Exec("TRUNCATE " + table); err != nil {
				t.Errorf("truncate %s: %v", table, err)
			}
		}
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		db.Close()
	})
	return db
}
