package sqlite

import (
	"context"

	"github.com/ridgeway/memkeep/internal/storage"
)

// DBStats is a read-only introspection snapshot, in the spirit of the
// teacher's cmd/bd/doctor diagnostics: it never participates in policy
// decisions, it only reports on them.
type DBStats struct {
	TotalMemories      int
	ActiveCount        int
	SupersededCount    int
	ArchivedCount      int
	DeletedCount       int
	DistinctUsers      int
	OldestCreatedAt    string
	NewestCreatedAt    string
}

// Stats computes row counts per lifecycle state plus the created_at span,
// backing `memkeepd stats`.
func (s *Storage) Stats(ctx context.Context) (DBStats, error) {
	var out DBStats

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&out.TotalMemories)
	if err != nil {
		return out, storage.WrapDBError("count memories", err)
	}

	counts := map[string]*int{
		"active":     &out.ActiveCount,
		"superseded": &out.SupersededCount,
		"archived":   &out.ArchivedCount,
		"deleted":    &out.DeletedCount,
	}
	for state, dst := range counts {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM memories WHERE state = ?`, state).Scan(dst); err != nil {
			return out, storage.WrapDBError("count memories by state", err)
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user_id) FROM memories`).Scan(&out.DistinctUsers); err != nil {
		return out, storage.WrapDBError("count distinct users", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT MIN(created_at), MAX(created_at) FROM memories`)
	var oldest, newest *string
	if err := row.Scan(&oldest, &newest); err != nil {
		return out, storage.WrapDBError("scan created_at span", err)
	}
	if oldest != nil {
		out.OldestCreatedAt = *oldest
	}
	if newest != nil {
		out.NewestCreatedAt = *newest
	}

	return out, nil
}
