package policy

import (
	"context"
	"log/slog"
)

// logEvaluationStarted emits the policy_evaluation_started record every
// evaluation begins with.
func logEvaluationStarted(ctx context.Context, log *slog.Logger, correlationID, sessionID, userID, subject string, source string) {
	log.InfoContext(ctx, "policy evaluation started",
		"event_type", "policy_evaluation_started",
		"correlation_id", correlationID,
		"session_id", sessionID,
		"user_id", userID,
		"subject", subject,
		"source", source,
	)
}

// logResolutionDecided emits the policy_resolution_decided record every
// evaluation ends with, carrying the reason_code that is part of the
// external contract.
func logResolutionDecided(ctx context.Context, log *slog.Logger, d Decision, correlationID, sessionID, userID string) {
	attrs := []any{
		"event_type", "policy_resolution_decided",
		"correlation_id", correlationID,
		"session_id", sessionID,
		"user_id", userID,
		"policy_decision", string(d.Outcome),
		"reason_code", string(d.ReasonCode),
	}
	if d.MemoryID != 0 {
		attrs = append(attrs, "new_id", d.MemoryID)
	}
	if d.SupersedesMemoryID != 0 {
		attrs = append(attrs, "supersedes_id", d.SupersedesMemoryID)
	}
	log.InfoContext(ctx, "policy resolution decided", attrs...)
}

// logOCCRace emits a warning every time a CAS attempt loses a race and the
// loop retries, matching the habit of logging retried conditions at Warn
// level rather than silently swallowing them.
func logOCCRace(ctx context.Context, log *slog.Logger, correlationID string, attempt int, conflictID int64) {
	log.WarnContext(ctx, "occ race condition, retrying",
		"event_type", "occ_race_condition",
		"correlation_id", correlationID,
		"attempt", attempt,
		"memory_id", conflictID,
	)
}

// logRetrieved emits the memory_retrieved_event forensic record.
func logRetrieved(ctx context.Context, log *slog.Logger, correlationID, userID, query string, scope []string, stateFilter string, resultIDs []int64, durationMS int64) {
	log.InfoContext(ctx, "memory retrieved",
		"event_type", "memory_retrieved_event",
		"correlation_id", correlationID,
		"user_id", userID,
		"query", query,
		"scope", scope,
		"state_filter", stateFilter,
		"result_count", len(resultIDs),
		"result_ids", resultIDs,
		"duration_ms", durationMS,
	)
}

// logTransitionApplied emits the lifecycle_transition_applied record every
// administrative archive/delete emits on success.
func logTransitionApplied(ctx context.Context, log *slog.Logger, correlationID, userID string, id int64, from, to string) {
	log.InfoContext(ctx, "lifecycle transition applied",
		"event_type", "lifecycle_transition_applied",
		"correlation_id", correlationID,
		"user_id", userID,
		"memory_id", id,
		"from_state", from,
		"to_state", to,
	)
}

// logRateLimitExceeded emits the rate_limit_exceeded warning.
func logRateLimitExceeded(ctx context.Context, log *slog.Logger, correlationID, userID, endpoint string) {
	log.WarnContext(ctx, "rate limit exceeded",
		"event_type", "rate_limit_exceeded",
		"correlation_id", correlationID,
		"user_id", userID,
		"endpoint", endpoint,
	)
}
