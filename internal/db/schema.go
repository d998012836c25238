package db

import "database/sql"

// SchemaSQL is the complete schema for the local draft database.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Repository
// tests load it through GetSchemaSQL() instead of declaring their own tables,
// so a column referenced by repository code but missing here fails
// immediately with "no such column".
const SchemaSQL = `
-- Drafts (local working copy of a migration batch)
CREATE TABLE IF NOT EXISTS drafts (
	batch_id TEXT PRIMARY KEY,
	unix_nano INTEGER NOT NULL DEFAULT 0,
	payload TEXT NOT NULL,
	dirty INTEGER NOT NULL DEFAULT 0 CHECK(dirty IN (0, 1)),
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_drafts_order ON drafts(unix_nano, batch_id);
`

// InitSchema creates the database schema. Every statement is idempotent.
func InitSchema(database *sql.DB) error {
	_, err := database.Exec(SchemaSQL)
	return err
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
