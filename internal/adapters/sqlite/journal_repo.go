// Package sqlite contains the SQLite implementation of the sprint journal.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/sprintq/internal/ports/secondary"
)

// JournalRepository implements secondary.JournalRepository with SQLite.
type JournalRepository struct {
	db *sql.DB
}

// NewJournalRepository creates a new SQLite journal repository.
func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Record persists a new journal entry.
func (r *JournalRepository) Record(ctx context.Context, entry *secondary.JournalEntry) error {
	var actorID, fieldName, oldValue, newValue sql.NullString
	if entry.ActorID != "" {
		actorID = sql.NullString{String: entry.ActorID, Valid: true}
	}
	if entry.FieldName != "" {
		fieldName = sql.NullString{String: entry.FieldName, Valid: true}
	}
	if entry.OldValue != "" {
		oldValue = sql.NullString{String: entry.OldValue, Valid: true}
	}
	if entry.NewValue != "" {
		newValue = sql.NullString{String: entry.NewValue, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO journal_entries (sprint_id, actor_id, story_id, action, field_name, old_value, new_value) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SprintID,
		actorID,
		entry.StoryID,
		entry.Action,
		fieldName,
		oldValue,
		newValue,
	)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}
	return nil
}

// List retrieves entries matching the filters, newest first.
func (r *JournalRepository) List(ctx context.Context, filters secondary.JournalFilters) ([]*secondary.JournalEntry, error) {
	query := `SELECT id, sprint_id, actor_id, story_id, action, field_name, old_value, new_value, created_at FROM journal_entries`
	var conditions []string
	var args []interface{}

	if filters.StoryID != "" {
		conditions = append(conditions, "story_id = ?")
		args = append(args, filters.StoryID)
	}
	if filters.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filters.Action)
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.JournalEntry
	for rows.Next() {
		var (
			actorID   sql.NullString
			fieldName sql.NullString
			oldValue  sql.NullString
			newValue  sql.NullString
			createdAt time.Time
		)
		entry := &secondary.JournalEntry{}
		if err := rows.Scan(&entry.ID, &entry.SprintID, &actorID, &entry.StoryID,
			&entry.Action, &fieldName, &oldValue, &newValue, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entry.ActorID = actorID.String
		entry.FieldName = fieldName.String
		entry.OldValue = oldValue.String
		entry.NewValue = newValue.String
		entry.CreatedAt = createdAt
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PruneOlderThan deletes entries older than the given number of days.
func (r *JournalRepository) PruneOlderThan(ctx context.Context, days int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM journal_entries WHERE created_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Ensure JournalRepository implements the interface.
var _ secondary.JournalRepository = (*JournalRepository)(nil)
