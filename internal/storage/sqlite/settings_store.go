package sqlite

import (
	"context"

	"github.com/ridgeway/memkeep/internal/storage"
)

// GetAllOverrides returns every settings_overrides row as a flat map.
func (s *Storage) GetAllOverrides(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings_overrides`)
	if err != nil {
		return nil, storage.WrapDBError("get all overrides", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, storage.WrapDBError("scan override row", err)
		}
		out[k] = v
	}
	return out, storage.WrapDBError("iterate override rows", rows.Err())
}

// SetSettingOverride is a last-writer-wins upsert.
func (s *Storage) SetSettingOverride(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings_overrides (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return storage.WrapDBError("set setting override", err)
}
