package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateBaseSchema creates the memories, memory_versions, and
// settings_overrides tables on a database that has no memories table.
// When memories already exists it does nothing, so memory_versions and
// settings_overrides are not created here even if they are missing. It
// does not create the partial uniqueness index — that's 005, after any
// dedup pass on pre-existing data.
func migrateBaseSchema(ctx context.Context, db *sql.DB) error {
	exists, err := tableExists(ctx, db, "memories")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	stmts := []string{
		`CREATE TABLE memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			memory_date TEXT NOT NULL,
			subject TEXT NOT NULL,
			importance INTEGER NOT NULL,
			access_mode TEXT NOT NULL DEFAULT 'private',
			state TEXT NOT NULL DEFAULT 'active',
			supersedes_memory_id INTEGER NULL,
			confidence_score REAL NOT NULL DEFAULT 1.0,
			source TEXT NOT NULL DEFAULT 'inferred',
			content_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE memory_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			memory_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			version INTEGER NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(memory_id, version),
			FOREIGN KEY(memory_id) REFERENCES memories(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX idx_memory_versions_lookup ON memory_versions(memory_id, version DESC)`,
		`CREATE TABLE settings_overrides (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX idx_memories_subject_lookup ON memories(session_id, user_id, subject, state)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
