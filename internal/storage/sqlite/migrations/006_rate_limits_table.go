package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateRateLimitsTable creates the fixed-window rate limiter table.
func migrateRateLimitsTable(ctx context.Context, db *sql.DB) error {
	exists, err := tableExists(ctx, db, "rate_limits")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.ExecContext(ctx, `
		CREATE TABLE rate_limits (
			user_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			window_start INTEGER NOT NULL,
			request_count INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (user_id, endpoint, window_start)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating rate_limits table: %w", err)
	}
	return nil
}
