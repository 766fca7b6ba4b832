package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateLifecycleColumns adds the lifecycle and precedence columns to a
// pre-existing memories table that predates them. On a freshly created
// database (001 just ran) every column already exists and each add is a
// no-op.
func migrateLifecycleColumns(ctx context.Context, db *sql.DB) error {
	additions := []struct {
		column string
		ddl    string
	}{
		{"state", `ALTER TABLE memories ADD COLUMN state TEXT NOT NULL DEFAULT 'active'`},
		{"supersedes_memory_id", `ALTER TABLE memories ADD COLUMN supersedes_memory_id INTEGER NULL`},
		{"confidence_score", `ALTER TABLE memories ADD COLUMN confidence_score REAL NOT NULL DEFAULT 1.0`},
		{"source", `ALTER TABLE memories ADD COLUMN source TEXT NOT NULL DEFAULT 'inferred'`},
		{"access_mode", `ALTER TABLE memories ADD COLUMN access_mode TEXT NOT NULL DEFAULT 'private'`},
	}

	for _, a := range additions {
		has, err := hasColumn(ctx, db, "memories", a.column)
		if err != nil {
			return fmt.Errorf("checking column %s: %w", a.column, err)
		}
		if has {
			continue
		}
		if _, err := db.ExecContext(ctx, a.ddl); err != nil {
			return fmt.Errorf("adding column %s: %w", a.column, err)
		}
	}
	return nil
}
