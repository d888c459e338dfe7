package db

// SchemaSQL is the single source of truth for the journal schema. Tests
// load it via GetSchemaSQL so test and production schemas cannot drift.
const SchemaSQL = `
-- Sprint journal (immutable mutation history)
CREATE TABLE IF NOT EXISTS journal_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sprint_id TEXT NOT NULL,
	actor_id TEXT,
	story_id TEXT NOT NULL,
	action TEXT NOT NULL,
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_journal_story ON journal_entries(story_id);
CREATE INDEX IF NOT EXISTS idx_journal_action ON journal_entries(action);
`

// GetSchemaSQL returns the authoritative schema.
func GetSchemaSQL() string {
	return SchemaSQL
}
