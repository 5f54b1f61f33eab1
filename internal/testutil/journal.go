package testutil

import (
	"testing"

	"bsa-go/internal/journal"
	"bsa-go/internal/journal/migrations"
	"bsa-go/internal/rule"
)

// NewTestJournal creates a new in-memory SQLite journal with migrations
// applied. The journal is automatically closed when the test completes.
func NewTestJournal(t *testing.T) rule.Journal {
	t.Helper()

	db, err := journal.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal database: %v", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		t.Fatalf("failed to migrate journal database: %v", err)
	}

	j := journal.NewSQLiteJournalFromDB(db)

	t.Cleanup(func() {
		j.Close()
	})

	return j
}
