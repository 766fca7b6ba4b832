package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateContentHash adds content_hash with a placeholder default, then
// rewrites every placeholder to a random uniqueness-preserving blob so the
// partial index created in 005 never fails on pre-existing rows.
func migrateContentHash(ctx context.Context, db *sql.DB) error {
	has, err := hasColumn(ctx, db, "memories", "content_hash")
	if err != nil {
		return fmt.Errorf("checking content_hash column: %w", err)
	}
	if !has {
		if _, err := db.ExecContext(ctx,
			`ALTER TABLE memories ADD COLUMN content_hash TEXT NOT NULL DEFAULT 'legacy_hash'`); err != nil {
			return fmt.Errorf("adding content_hash column: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE memories SET content_hash = hex(randomblob(16)) WHERE content_hash = 'legacy_hash' OR content_hash = ''`); err != nil {
		return fmt.Errorf("backfilling content_hash: %w", err)
	}
	return nil
}
