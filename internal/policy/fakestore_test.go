package policy

import (
	"context"
	"sync"

	"github.com/ridgeway/memkeep/internal/storage"
	"github.com/ridgeway/memkeep/internal/types"
)

// fakeStore is an in-memory storage.Store used to exercise the Policy
// Engine's decision logic and OCC retry behavior without a real database.
// It reproduces the one invariant the engine depends on: InsertMemory
// rejects a second active row sharing (user_id, content_hash).
type fakeStore struct {
	mu           sync.Mutex
	nextID       int64
	memories     map[int64]*fakeRow
	rateWindow   map[string]int
	raceOnInsert func(p storage.InsertMemoryParams) bool // test hook: force a duplicate-active race once
	raceOnCAS    func(id int64) bool                      // test hook: force a lost CAS once
	stateLog     []stateChange                            // records every SetMemoryState call, in order
}

// stateChange records one observed SetMemoryState call, used by tests that
// need to assert on the order of CAS/rollback transitions rather than just
// the final row state.
type stateChange struct {
	id      int64
	state   types.State
	changed bool
}

type fakeRow struct {
	types.Memory
	Content string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		memories:   make(map[int64]*fakeRow),
		rateWindow: make(map[string]int),
	}
}

func (f *fakeStore) InsertMemory(ctx context.Context, p storage.InsertMemoryParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.raceOnInsert != nil && f.raceOnInsert(p) {
		return 0, storage.ErrDuplicateActive
	}

	hash := types.ContentHash(p.Content)
	for _, row := range f.memories {
		if row.State == types.StateActive && row.UserID == p.UserID && row.ContentHash == hash {
			return 0, storage.ErrDuplicateActive
		}
	}

	f.nextID++
	id := f.nextID
	f.memories[id] = &fakeRow{
		Memory: types.Memory{
			ID:                 id,
			SessionID:          p.SessionID,
			UserID:             p.UserID,
			MemoryDate:         p.MemoryDate,
			Subject:            p.Subject,
			Importance:         p.Importance,
			AccessMode:         p.AccessMode,
			State:              p.State,
			SupersedesMemoryID: p.SupersedesMemoryID,
			ConfidenceScore:    p.ConfidenceScore,
			Source:             p.Source,
			ContentHash:        hash,
		},
		Content: p.Content,
	}
	return id, nil
}

func (f *fakeStore) SetMemoryState(ctx context.Context, id int64, newState types.State) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed, err := f.setMemoryStateLocked(id, newState)
	f.stateLog = append(f.stateLog, stateChange{id: id, state: newState, changed: changed})
	return changed, err
}

func (f *fakeStore) setMemoryStateLocked(id int64, newState types.State) (bool, error) {
	if f.raceOnCAS != nil && f.raceOnCAS(id) {
		return false, nil
	}

	row, ok := f.memories[id]
	if !ok {
		return false, nil
	}
	if row.State == newState {
		return false, nil
	}
	row.State = newState
	return true, nil
}

func (f *fakeStore) GetActiveMemoriesBySubject(ctx context.Context, sessionID, userID, subject string) ([]types.ActiveMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []int64
	for id, row := range f.memories {
		if row.State == types.StateActive && row.SessionID == sessionID && row.UserID == userID && row.Subject == subject {
			ids = append(ids, id)
		}
	}
	// ascending id, matching the real query's ORDER BY m.id ASC
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	result := make([]types.ActiveMemory, 0, len(ids))
	for _, id := range ids {
		row := f.memories[id]
		result = append(result, types.ActiveMemory{
			ID:              row.ID,
			Content:         row.Content,
			ConfidenceScore: row.ConfidenceScore,
			Source:          row.Source,
			Importance:      row.Importance,
		})
	}
	return result, nil
}

func (f *fakeStore) GetMemoryStateAndOwner(ctx context.Context, id int64) (types.State, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.memories[id]
	if !ok {
		return "", "", storage.ErrNotFound
	}
	return row.State, row.UserID, nil
}

func (f *fakeStore) RetrieveMemories(ctx context.Context, q storage.RetrieveQuery) ([]types.RetrievedMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.RetrievedMemory
	for _, row := range f.memories {
		if row.State != q.StateFilter {
			continue
		}
		if row.UserID != q.UserID {
			continue
		}
		out = append(out, types.RetrievedMemory{
			ID:         row.ID,
			SessionID:  row.SessionID,
			Subject:    row.Subject,
			Content:    row.Content,
			Confidence: row.ConfidenceScore,
			Source:     row.Source,
			State:      row.State,
		})
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeStore) CheckRateLimit(ctx context.Context, userID, endpoint string, maxRequests, windowSeconds int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + "|" + endpoint
	f.rateWindow[key]++
	return f.rateWindow[key] <= maxRequests, nil
}

func (f *fakeStore) GetAllOverrides(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (f *fakeStore) SetSettingOverride(ctx context.Context, key, value string) error {
	return nil
}

func (f *fakeStore) Close() error { return nil }

var _ storage.Store = (*fakeStore)(nil)
