package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ridgeway/memkeep/internal/storage"
	"github.com/ridgeway/memkeep/internal/types"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memkeep.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertParams(userID, subject, content string, source types.Source, confidence float64) storage.InsertMemoryParams {
	return storage.InsertMemoryParams{
		SessionID:       "sess-1",
		UserID:          userID,
		MemoryDate:      "2026-01-01",
		Subject:         subject,
		Importance:      4,
		AccessMode:      types.AccessPrivate,
		State:           types.StateActive,
		ConfidenceScore: confidence,
		Source:          source,
		Content:         content,
	}
}

func TestInsertMemoryAndVersion(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.InsertMemory(ctx, insertParams("u1", "Pref", "User loves Python", types.SourceInferred, 0.6))
	require.NoError(t, err)
	require.NotZero(t, id)

	active, err := s.GetActiveMemoriesBySubject(ctx, "sess-1", "u1", "Pref")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "User loves Python", active[0].Content)
	require.Equal(t, types.SourceInferred, active[0].Source)
}

func TestInsertMemoryDuplicateActiveHashRejected(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.InsertMemory(ctx, insertParams("u1", "Pref", "same content", types.SourceInferred, 0.6))
	require.NoError(t, err)

	_, err = s.InsertMemory(ctx, insertParams("u1", "Pref", "same content", types.SourceInferred, 0.6))
	require.ErrorIs(t, err, storage.ErrDuplicateActive)
}

func TestInsertMemoryDuplicateAcrossUsersAllowed(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.InsertMemory(ctx, insertParams("u1", "Pref", "same content", types.SourceInferred, 0.6))
	require.NoError(t, err)

	_, err = s.InsertMemory(ctx, insertParams("u2", "Pref", "same content", types.SourceInferred, 0.6))
	require.NoError(t, err)
}

func TestSetMemoryStateCASSemantics(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.InsertMemory(ctx, insertParams("u1", "Pref", "content", types.SourceInferred, 0.6))
	require.NoError(t, err)

	mutated, err := s.SetMemoryState(ctx, id, types.StateSuperseded)
	require.NoError(t, err)
	require.True(t, mutated)

	// Second attempt to set the same state is a no-op: predicate requires
	// the current state to differ.
	mutated, err = s.SetMemoryState(ctx, id, types.StateSuperseded)
	require.NoError(t, err)
	require.False(t, mutated)
}

func TestRetrieveMemoriesDeterministicOrdering(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	type fact struct {
		content    string
		source     types.Source
		confidence float64
	}
	facts := []fact{
		{"Apple", types.SourceInferred, 0.6},
		{"Banana", types.SourceInferred, 0.8},
		{"Cherry", types.SourceImported, 1.0},
		{"Date", types.SourceManual, 1.0},
		{"Elderberry", types.SourceManual, 0.9},
	}
	for _, f := range facts {
		_, err := s.InsertMemory(ctx, insertParams("u1", "Fruit", f.content, f.source, f.confidence))
		require.NoError(t, err)
	}

	results, err := s.RetrieveMemories(ctx, storage.RetrieveQuery{
		UserID:      "u1",
		Scope:       []string{"*"},
		StateFilter: types.StateActive,
		Limit:       20,
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	want := []string{"Date", "Elderberry", "Cherry", "Banana", "Apple"}
	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.Content
	}
	require.Equal(t, want, got)
}

func TestRetrieveMemoriesUserIsolation(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.InsertMemory(ctx, insertParams("userA", "Secret", "secret A", types.SourceManual, 1.0))
	require.NoError(t, err)
	_, err = s.InsertMemory(ctx, insertParams("userB", "Secret", "secret B", types.SourceManual, 1.0))
	require.NoError(t, err)

	results, err := s.RetrieveMemories(ctx, storage.RetrieveQuery{
		UserID:      "userA",
		Scope:       []string{"*"},
		StateFilter: types.StateActive,
		Limit:       20,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "secret A", results[0].Content)
}

func TestRetrieveMemoriesSharedVisibility(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	shared := insertParams("owner", "Team", "team norm", types.SourceManual, 1.0)
	shared.AccessMode = types.AccessShared
	_, err := s.InsertMemory(ctx, shared)
	require.NoError(t, err)

	// A caller whose allow-list admits "Team" sees the shared row even
	// though it isn't theirs.
	results, err := s.RetrieveMemories(ctx, storage.RetrieveQuery{
		UserID:          "viewer",
		Scope:           []string{"*"},
		StateFilter:     types.StateActive,
		Limit:           20,
		AllowedSubjects: []string{"Team"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// A caller whose allow-list does not admit "Team" does not.
	results, err = s.RetrieveMemories(ctx, storage.RetrieveQuery{
		UserID:          "viewer",
		Scope:           []string{"*"},
		StateFilter:     types.StateActive,
		Limit:           20,
		AllowedSubjects: []string{"Other"},
	})
	require.NoError(t, err)
	require.Len(t, results, 0)
}

func TestRetrieveMemoriesLimitHardCap(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := s.InsertMemory(ctx, insertParams("u1", "Bulk", "fact "+string(rune('a'+i)), types.SourceInferred, 0.5))
		require.NoError(t, err)
	}

	results, err := s.RetrieveMemories(ctx, storage.RetrieveQuery{
		UserID:      "u1",
		Scope:       []string{"*"},
		StateFilter: types.StateActive,
		Limit:       20,
	})
	require.NoError(t, err)
	require.Len(t, results, 20)
}

func TestCheckRateLimitAllowsUnderMax(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := s.CheckRateLimit(ctx, "u1", "retrieve_memory", 5, 60)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := s.CheckRateLimit(ctx, "u1", "retrieve_memory", 5, 60)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestSettingsOverrideUpsert(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SetSettingOverride(ctx, "memory_extraction_threshold", "4.0"))
	overrides, err := s.GetAllOverrides(ctx)
	require.NoError(t, err)
	require.Equal(t, "4.0", overrides["memory_extraction_threshold"])

	require.NoError(t, s.SetSettingOverride(ctx, "memory_extraction_threshold", "2.5"))
	overrides, err = s.GetAllOverrides(ctx)
	require.NoError(t, err)
	require.Equal(t, "2.5", overrides["memory_extraction_threshold"])
}
