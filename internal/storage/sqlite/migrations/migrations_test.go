package migrations

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyFreshDatabase(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	require.NoError(t, Apply(ctx, db))

	for _, tbl := range []string{"memories", "memory_versions", "settings_overrides", "rate_limits"} {
		exists, err := tableExists(ctx, db, tbl)
		require.NoError(t, err)
		require.Truef(t, exists, "expected table %s to exist", tbl)
	}

	var indexExists bool
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0 FROM sqlite_master
		WHERE type='index' AND name='idx_active_memories_hash'
	`).Scan(&indexExists)
	require.NoError(t, err)
	require.True(t, indexExists)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	require.NoError(t, Apply(ctx, db))
	require.NoError(t, Apply(ctx, db))
	require.NoError(t, Apply(ctx, db))
}

func TestApplyUpgradesLegacySchema(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	// Simulate a pre-lifecycle-era database: only the original columns
	// from before the policy engine existed.
	_, err := db.ExecContext(ctx, `
		CREATE TABLE memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT 'default_user',
			memory_date TEXT NOT NULL,
			subject TEXT NOT NULL,
			importance INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO memories (session_id, user_id, memory_date, subject, importance)
		VALUES ('s1', 'u1', '2026-01-01', 'Legacy', 3)
	`)
	require.NoError(t, err)

	require.NoError(t, Apply(ctx, db))

	for _, col := range []string{"state", "supersedes_memory_id", "confidence_score", "source", "access_mode", "content_hash"} {
		has, err := hasColumn(ctx, db, "memories", col)
		require.NoError(t, err)
		require.Truef(t, has, "expected column %s after upgrade", col)
	}

	var hash string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT content_hash FROM memories WHERE id = 1`).Scan(&hash))
	require.NotEqual(t, "legacy_hash", hash)
	require.NotEmpty(t, hash)
}

func TestDedupeActiveHashKeepsOneSurvivor(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	require.NoError(t, migrateBaseSchema(ctx, db))
	require.NoError(t, migrateLifecycleColumns(ctx, db))
	require.NoError(t, migrateContentHash(ctx, db))

	// Two "active" rows sharing a hash, simulating pre-invariant duplicate data.
	for i := 0; i < 2; i++ {
		_, err := db.ExecContext(ctx, `
			INSERT INTO memories (session_id, user_id, memory_date, subject, importance, state, content_hash)
			VALUES ('s1', 'dup-user', '2026-01-01', 'Pref', 3, 'active', 'collide')
		`)
		require.NoError(t, err)
	}

	require.NoError(t, migrateDedupeActiveHash(ctx, db))
	require.NoError(t, migrateActiveUniquenessIndex(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE user_id = 'dup-user' AND content_hash = 'collide' AND state = 'active'`).Scan(&count))
	require.Equal(t, 1, count)
}
