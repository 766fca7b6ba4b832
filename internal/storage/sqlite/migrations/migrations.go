// Package migrations applies forward-only, idempotent schema changes: on
// open, inspect the existing column set and add what's missing with safe
// defaults, then rewrite placeholder content_hash values before creating
// the partial uniqueness index. Each migration is one function that either
// checks the schema first (pragma_table_info or sqlite_master) or is
// idempotent by construction, so re-running Apply against an
// already-migrated database is always a no-op.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// step is a single forward-only migration. Steps run in slice order and
// must be safe to re-run against an already-migrated database.
type step struct {
	name string
	run  func(ctx context.Context, db *sql.DB) error
}

var steps = []step{
	{"001_base_schema", migrateBaseSchema},
	{"002_lifecycle_columns", migrateLifecycleColumns},
	{"003_content_hash", migrateContentHash},
	{"004_dedupe_active_hash", migrateDedupeActiveHash},
	{"005_active_uniqueness_index", migrateActiveUniquenessIndex},
	{"006_rate_limits_table", migrateRateLimitsTable},
}

// Apply runs every migration step in order. Each step is individually
// idempotent, so Apply is safe to call every time the database is opened.
func Apply(ctx context.Context, db *sql.DB) error {
	for _, s := range steps {
		if err := s.run(ctx, db); err != nil {
			return fmt.Errorf("migration %s: %w", s.name, err)
		}
	}
	return nil
}

// hasColumn reports whether table has the named column.
func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM pragma_table_info('%s')`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// tableExists reports whether the given table is present in the schema.
func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
