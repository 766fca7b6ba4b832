package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ridgeway/memkeep/internal/storage"
	"github.com/ridgeway/memkeep/internal/types"
)

// InsertMemory computes the content hash, inserts the Memory row and its
// version-1 content in a single transaction. If the active
// uniqueness index rejects the insert, it returns storage.ErrDuplicateActive
// — the native signal that another writer won the race.
func (s *Storage) InsertMemory(ctx context.Context, p storage.InsertMemoryParams) (int64, error) {
	contentHash := types.ContentHash(p.Content)

	candidate := types.Memory{
		UserID:             p.UserID,
		Subject:            p.Subject,
		Importance:         p.Importance,
		AccessMode:         p.AccessMode,
		State:              p.State,
		SupersedesMemoryID: p.SupersedesMemoryID,
		ConfidenceScore:    p.ConfidenceScore,
		Source:             p.Source,
		ContentHash:        contentHash,
	}
	if err := candidate.ValidateForInsert(); err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storage.WrapDBError("begin insert memory tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memories (
			session_id, user_id, memory_date, subject, importance, access_mode,
			state, supersedes_memory_id, confidence_score, source, content_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.SessionID, p.UserID, p.MemoryDate, p.Subject, p.Importance, string(p.AccessMode),
		string(p.State), p.SupersedesMemoryID, p.ConfidenceScore, string(p.Source), contentHash,
	)
	if err != nil {
		if isUniqueConstraintViolation(err) {
			return 0, storage.ErrDuplicateActive
		}
		return 0, storage.WrapDBError("insert memory", err)
	}

	memoryID, err := res.LastInsertId()
	if err != nil {
		return 0, storage.WrapDBError("read last insert id", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memory_versions (memory_id, content, version) VALUES (?, ?, 1)
	`, memoryID, p.Content); err != nil {
		return 0, storage.WrapDBError("insert memory version", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storage.WrapDBError("commit insert memory", err)
	}
	return memoryID, nil
}

// isUniqueConstraintViolation detects a violation of the active-uniqueness
// index regardless of the exact driver error text, via a
// "UNIQUE constraint failed" substring check.
func isUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(err.Error()), "UNIQUE CONSTRAINT")
}

// SetMemoryState is the OCC compare-and-set primitive: it updates state only
// where the current state differs from newState, and reports whether a row
// actually changed.
func (s *Storage) SetMemoryState(ctx context.Context, id int64, newState types.State) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET state = ? WHERE id = ? AND state != ?
	`, string(newState), id, string(newState))
	if err != nil {
		return false, storage.WrapDBError("set memory state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storage.WrapDBError("read rows affected", err)
	}
	return n > 0, nil
}

// GetActiveMemoriesBySubject returns active memories for a
// (session, user, subject) triple, joined to each memory's latest version,
// ordered ascending by id — the scan order the conflict-detection contract
// depends on.
func (s *Storage) GetActiveMemoriesBySubject(ctx context.Context, sessionID, userID, subject string) ([]types.ActiveMemory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, mv.content, m.confidence_score, m.source, m.importance
		FROM memories m
		JOIN (
			SELECT memory_id, MAX(version) AS max_version
			FROM memory_versions
			GROUP BY memory_id
		) latest ON m.id = latest.memory_id
		JOIN memory_versions mv ON mv.memory_id = latest.memory_id AND mv.version = latest.max_version
		WHERE m.session_id = ? AND m.user_id = ? AND m.subject = ? AND m.state = 'active'
		ORDER BY m.id ASC
	`, sessionID, userID, subject)
	if err != nil {
		return nil, storage.WrapDBError("query active memories by subject", err)
	}
	defer rows.Close()

	var result []types.ActiveMemory
	for rows.Next() {
		var (
			am     types.ActiveMemory
			source string
		)
		if err := rows.Scan(&am.ID, &am.Content, &am.ConfidenceScore, &source, &am.Importance); err != nil {
			return nil, storage.WrapDBError("scan active memory row", err)
		}
		am.Source = types.Source(source)
		result = append(result, am)
	}
	return result, storage.WrapDBError("iterate active memory rows", rows.Err())
}

// GetMemoryStateAndOwner is a small helper used by administrative
// transitions (archive/delete) to validate the lifecycle transition graph
// before mutating state.
func (s *Storage) GetMemoryStateAndOwner(ctx context.Context, id int64) (types.State, string, error) {
	var (
		state, userID string
	)
	err := s.db.QueryRowContext(ctx, `SELECT state, user_id FROM memories WHERE id = ?`, id).Scan(&state, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", storage.ErrNotFound
	}
	if err != nil {
		return "", "", storage.WrapDBError("get memory state", err)
	}
	return types.State(state), userID, nil
}
