package sqlite

import (
	"context"
	"log/slog"
	"time"
)

// CheckRateLimit implements the fixed-window counter as an atomic upsert
// that inserts count=1 or increments and returns the post-increment count
// via RETURNING, pruning expired windows in the same pass. On
// infrastructure error it fails open — admission granted, with a logged
// warning — because the memory engine's availability matters more than
// strict throttling.
func (s *Storage) CheckRateLimit(ctx context.Context, userID, endpoint string, maxRequests, windowSeconds int) (bool, error) {
	now := time.Now().Unix()
	windowStart := now - (now % int64(windowSeconds))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Warn("rate limit check failed open", "event_type", "rate_limit_infra_error", "user_id", userID, "endpoint", endpoint, "error", err)
		return true, nil
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_limits WHERE window_start < ?`, now-int64(windowSeconds)); err != nil {
		slog.Warn("rate limit prune failed open", "event_type", "rate_limit_infra_error", "user_id", userID, "endpoint", endpoint, "error", err)
		return true, nil
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO rate_limits (user_id, endpoint, window_start, request_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(user_id, endpoint, window_start)
		DO UPDATE SET request_count = request_count + 1
		RETURNING request_count
	`, userID, endpoint, windowStart).Scan(&count)
	if err != nil {
		slog.Warn("rate limit upsert failed open", "event_type", "rate_limit_infra_error", "user_id", userID, "endpoint", endpoint, "error", err)
		return true, nil
	}

	if err := tx.Commit(); err != nil {
		slog.Warn("rate limit commit failed open", "event_type", "rate_limit_infra_error", "user_id", userID, "endpoint", endpoint, "error", err)
		return true, nil
	}

	return count <= maxRequests, nil
}
