package storage

import (
	"context"

	"github.com/ridgeway/memkeep/internal/types"
)

// RetrieveQuery bundles the parameters of the deterministic retrieval query.
// Scope of ["*"] (or nil) admits any subject.
type RetrieveQuery struct {
	UserID           string
	QuerySubstring   string
	Scope            []string
	StateFilter      types.State
	Limit            int
	AllowedSubjects  []string // caller's shared-visibility allow-list
}

// InsertMemoryParams bundles the fields needed to append a new Memory and
// its version-1 content in a single transaction.
type InsertMemoryParams struct {
	SessionID          string
	UserID             string
	MemoryDate         string
	Subject            string
	Importance         int
	AccessMode         types.AccessMode
	State              types.State
	SupersedesMemoryID *int64
	ConfidenceScore    float64
	Source             types.Source
	Content            string
}

// Store is the persistence contract the Policy Engine, Retrieval Contract,
// and Memory Tool Facade depend on. A single SQLite-backed implementation
// lives in internal/storage/sqlite; the interface exists so the engine can
// be tested against a fake without touching a real database file.
type Store interface {
	// InsertMemory appends a new Memory row and its version-1 content.
	// Returns ErrDuplicateActive if the active-uniqueness index rejects the
	// insert.
	InsertMemory(ctx context.Context, p InsertMemoryParams) (int64, error)

	// SetMemoryState performs the single-predicate compare-and-set OCC
	// primitive: updates state only where current state differs from
	// newState, and reports whether a row actually changed.
	SetMemoryState(ctx context.Context, id int64, newState types.State) (bool, error)

	// GetMemoryStateAndOwner returns a memory's current state and owning
	// user_id, used to authorize and validate administrative lifecycle
	// transitions (archive, delete) before mutating state.
	GetMemoryStateAndOwner(ctx context.Context, id int64) (types.State, string, error)

	// GetActiveMemoriesBySubject returns active memories for a
	// (session, user, subject) triple, ordered ascending by id — ordering is
	// part of the conflict-detection contract.
	GetActiveMemoriesBySubject(ctx context.Context, sessionID, userID, subject string) ([]types.ActiveMemory, error)

	// RetrieveMemories executes the deterministic governed retrieval query.
	RetrieveMemories(ctx context.Context, q RetrieveQuery) ([]types.RetrievedMemory, error)

	// CheckRateLimit atomically upserts a fixed-window counter and reports
	// whether the post-increment count is within max. Fails open (returns
	// true with a nil error) on infrastructure error; the implementation
	// logs that warning itself.
	CheckRateLimit(ctx context.Context, userID, endpoint string, maxRequests, windowSeconds int) (bool, error)

	// GetAllOverrides returns every settings_overrides row as a flat map.
	GetAllOverrides(ctx context.Context) (map[string]string, error)

	// SetSettingOverride upserts a single settings override.
	SetSettingOverride(ctx context.Context, key, value string) error

	// Close releases the underlying connection(s).
	Close() error
}
