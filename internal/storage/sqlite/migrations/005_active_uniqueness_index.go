package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateActiveUniquenessIndex creates the partial unique index enforcing at
// most one active row per (user_id, content_hash). This is the ground-truth
// concurrency oracle the Policy Engine relies on to detect a lost OCC race
// as a native constraint violation.
func migrateActiveUniquenessIndex(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_active_memories_hash
		ON memories(user_id, content_hash) WHERE state = 'active'
	`)
	if err != nil {
		return fmt.Errorf("creating active uniqueness index: %w", err)
	}
	return nil
}
