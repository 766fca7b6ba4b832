package sqlite

import (
	"context"
	"strings"

	"github.com/ridgeway/memkeep/internal/storage"
	"github.com/ridgeway/memkeep/internal/types"
)

// RetrieveMemories executes the deterministic governed retrieval query,
// ordered by source weight DESC, confidence DESC, created_at DESC, id DESC
// — a total order pinned by the external contract.
//
// Shared-visibility rows (access_mode='shared') are additionally admitted
// regardless of user_id, as long as their subject is within the caller's
// own AllowedSubjects scope (never via the wildcard bypass meant for the
// primary user's own rows). There is exactly one retrieval query; no
// separate legacy aggregation path.
func (s *Storage) RetrieveMemories(ctx context.Context, q storage.RetrieveQuery) ([]types.RetrievedMemory, error) {
	scope := q.Scope
	if len(scope) == 0 {
		scope = []string{"*"}
	}
	allowScopeAll := containsStar(scope)
	scopePlaceholders, scopeArgs := placeholders(scope)

	allowedSubjects := q.AllowedSubjects
	if len(allowedSubjects) == 0 {
		allowedSubjects = []string{"*"}
	}
	allowSharedAll := containsStar(allowedSubjects)
	sharedPlaceholders, sharedArgs := placeholders(allowedSubjects)

	sql := `
		SELECT m.id, m.session_id, m.subject, mv.content, m.confidence_score, m.source, m.created_at, m.state
		FROM memories m
		JOIN (
			SELECT memory_id, MAX(version) AS max_version
			FROM memory_versions
			GROUP BY memory_id
		) latest ON m.id = latest.memory_id
		JOIN memory_versions mv ON mv.memory_id = latest.memory_id AND mv.version = latest.max_version
		WHERE m.state = ?
		  AND (
		        m.user_id = ?
		        OR (m.access_mode = 'shared' AND (? OR m.subject IN (` + sharedPlaceholders + `)))
		      )
		  AND (? OR m.subject IN (` + scopePlaceholders + `))
	`
	args := []any{string(q.StateFilter), q.UserID, allowSharedAll}
	args = append(args, sharedArgs...)
	args = append(args, allowScopeAll)
	args = append(args, scopeArgs...)

	if q.QuerySubstring != "" {
		sql += " AND mv.content LIKE ? COLLATE NOCASE"
		args = append(args, "%"+q.QuerySubstring+"%")
	}

	sql += `
		ORDER BY
			CASE m.source WHEN 'manual' THEN 3 WHEN 'imported' THEN 2 WHEN 'inferred' THEN 1 ELSE 0 END DESC,
			m.confidence_score DESC,
			m.created_at DESC,
			m.id DESC
		LIMIT ?
	`
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, storage.WrapDBError("retrieve memories", err)
	}
	defer rows.Close()

	var results []types.RetrievedMemory
	for rows.Next() {
		var (
			rm     types.RetrievedMemory
			source string
			state  string
		)
		if err := rows.Scan(&rm.ID, &rm.SessionID, &rm.Subject, &rm.Content, &rm.Confidence, &source, &rm.CreatedAt, &state); err != nil {
			return nil, storage.WrapDBError("scan retrieved memory row", err)
		}
		rm.Source = types.Source(source)
		rm.State = types.State(state)
		results = append(results, rm)
	}
	return results, storage.WrapDBError("iterate retrieved memory rows", rows.Err())
}

func containsStar(subjects []string) bool {
	for _, s := range subjects {
		if s == "*" {
			return true
		}
	}
	return false
}

func placeholders(values []string) (string, []any) {
	if len(values) == 0 {
		return "''", nil
	}
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}
	return strings.Join(marks, ","), args
}
