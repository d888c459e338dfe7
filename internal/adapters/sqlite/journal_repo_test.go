// Package sqlite_test contains integration tests for the SQLite journal.
//
// The schema is loaded through db.GetSchemaSQL so the tests always run
// against the authoritative schema.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/sprintq/internal/adapters/sqlite"
	"github.com/example/sprintq/internal/db"
	"github.com/example/sprintq/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() {
		testDB.Close()
	})
	return testDB
}

func TestJournalRecordAndList(t *testing.T) {
	repo := sqlite.NewJournalRepository(setupTestDB(t))
	ctx := context.Background()

	entries := []*secondary.JournalEntry{
		{SprintID: "sprint-1", ActorID: "driver-1", StoryID: "4", Action: "create", NewValue: "unassigned"},
		{SprintID: "sprint-1", StoryID: "4", Action: "update", FieldName: "status", OldValue: "unassigned", NewValue: "in_progress"},
		{SprintID: "sprint-1", StoryID: "5", Action: "create", NewValue: "unassigned"},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := repo.List(ctx, secondary.JournalFilters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("entries = %d, want 3", len(all))
	}
	// Newest first.
	if all[0].StoryID != "5" {
		t.Errorf("first entry story = %s, want 5", all[0].StoryID)
	}
	if all[2].ActorID != "driver-1" {
		t.Errorf("oldest entry actor = %q, want driver-1", all[2].ActorID)
	}
	if all[1].FieldName != "status" || all[1].OldValue != "unassigned" {
		t.Errorf("update entry fields = %+v", all[1])
	}
}

func TestJournalListFilters(t *testing.T) {
	repo := sqlite.NewJournalRepository(setupTestDB(t))
	ctx := context.Background()

	seed := []*secondary.JournalEntry{
		{SprintID: "sprint-1", StoryID: "4", Action: "create"},
		{SprintID: "sprint-1", StoryID: "4", Action: "update", FieldName: "status"},
		{SprintID: "sprint-1", StoryID: "5", Action: "update", FieldName: "status"},
	}
	for _, e := range seed {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	byStory, err := repo.List(ctx, secondary.JournalFilters{StoryID: "4"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byStory) != 2 {
		t.Errorf("story filter returned %d entries, want 2", len(byStory))
	}

	byBoth, err := repo.List(ctx, secondary.JournalFilters{StoryID: "4", Action: "update"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byBoth) != 1 {
		t.Errorf("combined filter returned %d entries, want 1", len(byBoth))
	}

	limited, err := repo.List(ctx, secondary.JournalFilters{Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d entries", len(limited))
	}
}

func TestJournalPruneOlderThan(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewJournalRepository(database)
	ctx := context.Background()

	if err := repo.Record(ctx, &secondary.JournalEntry{SprintID: "sprint-1", StoryID: "4", Action: "create"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// Backdate one entry past the retention window.
	_, err := database.Exec(
		`INSERT INTO journal_entries (sprint_id, story_id, action, created_at) VALUES ('sprint-1', '3', 'create', datetime('now', '-120 days'))`)
	if err != nil {
		t.Fatalf("seed old entry: %v", err)
	}

	n, err := repo.PruneOlderThan(ctx, 90)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	remaining, err := repo.List(ctx, secondary.JournalFilters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].StoryID != "4" {
		t.Errorf("remaining = %+v, want only story 4", remaining)
	}
}
