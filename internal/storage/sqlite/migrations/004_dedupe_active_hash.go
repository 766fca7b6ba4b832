package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateDedupeActiveHash forces every active-row collision on
// (user_id, content_hash) down to a single survivor — the minimum rowid —
// by giving the rest fresh random hashes. Without this, creating the
// partial uniqueness index in 005 would fail outright on a database that
// accumulated duplicates before the invariant existed.
func migrateDedupeActiveHash(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		UPDATE memories SET content_hash = hex(randomblob(16))
		WHERE state = 'active' AND rowid NOT IN (
			SELECT MIN(rowid) FROM memories
			WHERE state = 'active'
			GROUP BY user_id, content_hash
		)
	`)
	if err != nil {
		return fmt.Errorf("dedupe active content_hash: %w", err)
	}
	return nil
}
