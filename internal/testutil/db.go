// Package testutil holds shared test fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/dohr-michael/todoia/internal/storage"
)

// NewTestDB opens a migrated in-memory database and closes it when the test completes.
func NewTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close test database: %v", err)
		}
	})
	return db
}
