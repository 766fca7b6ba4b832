package policy

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ridgeway/memkeep/internal/retrieval"
	"github.com/ridgeway/memkeep/internal/storage"
	"github.com/ridgeway/memkeep/internal/types"
)

// errOCCRace is the internal signal an attempt uses to tell the backoff loop
// to retry. It never escapes Evaluate.
var errOCCRace = errors.New("occ race, retry")

// EvaluateInput is a candidate proposal awaiting policy evaluation. Callers
// (the tool facade, a direct API write) are expected to have already
// normalized Subject and clamped Importance; Evaluate trims Content but does
// no further coercion.
type EvaluateInput struct {
	CorrelationID string // generated if empty
	SessionID     string
	UserID        string
	MemoryDate    string
	Subject       string
	Importance    int
	AccessMode    types.AccessMode
	ConfidenceScore float64
	Source        types.Source
	Content       string
}

// Engine is the Policy & Lifecycle Engine: it evaluates a proposal against
// the active memories sharing its subject and resolves it into exactly one
// terminal Decision, then persists the effect of that decision under
// optimistic concurrency control.
type Engine struct {
	store storage.Store
	log   *slog.Logger
	rng   *rand.Rand
}

// NewEngine constructs an Engine. log must not be nil; pass
// slog.New(slog.DiscardHandler) in tests that don't care about audit output.
func NewEngine(store storage.Store, log *slog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Evaluate runs the full ACCEPT/SUPERSEDE/REJECT/EXISTS algorithm under
// bounded OCC retry. It returns a non-nil error only when the retry budget
// is exhausted or the store returns an unexpected failure; every other
// outcome is reported as a terminal Decision.
func (e *Engine) Evaluate(ctx context.Context, in EvaluateInput) (Decision, error) {
	correlationID := in.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logEvaluationStarted(ctx, e.log, correlationID, in.SessionID, in.UserID, in.Subject, string(in.Source))

	content := strings.TrimSpace(in.Content)
	bo := newOCCBackoff(e.rng)

	var (
		decision Decision
		attempt  int
	)
	op := func() error {
		attempt++
		d, race, err := e.attemptOnce(ctx, in, content)
		if err != nil {
			return backoff.Permanent(err)
		}
		if race {
			logOCCRace(ctx, e.log, correlationID, attempt, d.SupersedesMemoryID)
			return errOCCRace
		}
		decision = d
		return nil
	}

	err := backoff.Retry(op, bo)
	if err != nil {
		if errors.Is(err, errOCCRace) {
			decision = Decision{Err: errors.New("occ retries exhausted")}
			logResolutionDecided(ctx, e.log, decision, correlationID, in.SessionID, in.UserID)
			return decision, decision.Err
		}
		return Decision{Err: err}, err
	}

	logResolutionDecided(ctx, e.log, decision, correlationID, in.SessionID, in.UserID)
	return decision, nil
}

// attemptOnce runs a single pass of the algorithm: fetch the active set,
// classify against it, and perform the one mutation the classification
// calls for. race=true means a concurrent writer invalidated the read and
// the whole pass must be retried from a fresh fetch.
func (e *Engine) attemptOnce(ctx context.Context, in EvaluateInput, content string) (Decision, bool, error) {
	active, err := e.store.GetActiveMemoriesBySubject(ctx, in.SessionID, in.UserID, in.Subject)
	if err != nil {
		return Decision{}, false, err
	}

	conflict, found := findConflict(content, active)
	if !found {
		id, err := e.store.InsertMemory(ctx, storage.InsertMemoryParams{
			SessionID:       in.SessionID,
			UserID:          in.UserID,
			MemoryDate:      in.MemoryDate,
			Subject:         in.Subject,
			Importance:      in.Importance,
			AccessMode:      in.AccessMode,
			State:           types.StateActive,
			ConfidenceScore: in.ConfidenceScore,
			Source:          in.Source,
			Content:         in.Content,
		})
		if err != nil {
			if storage.IsDuplicateActive(err) {
				// No lexical conflict was visible at read time, but the native
				// active-uniqueness index says a byte-identical active memory
				// already exists. That is a fact about present state, not a
				// race to retry: report it directly.
				return Decision{Outcome: OutcomeExists, ReasonCode: ReasonExistsNativeConstraint}, false, nil
			}
			return Decision{}, false, err
		}
		return Decision{Outcome: OutcomeAccept, ReasonCode: ReasonAcceptNewFact, MemoryID: id}, false, nil
	}

	if strings.TrimSpace(conflict.Content) == content {
		return Decision{Outcome: OutcomeExists, ReasonCode: ReasonExistsExactMatch, SupersedesMemoryID: conflict.ID}, false, nil
	}

	if incomingLosesPrecedence(in.Source, in.ConfidenceScore, conflict) {
		return Decision{Outcome: OutcomeReject, ReasonCode: ReasonRejectPrecedenceTooLow, SupersedesMemoryID: conflict.ID}, false, nil
	}

	changed, err := e.store.SetMemoryState(ctx, conflict.ID, types.StateSuperseded)
	if err != nil {
		return Decision{}, false, err
	}
	if !changed {
		// Someone else already moved the conflicting row out of active state
		// between our read and this CAS. Re-evaluate from scratch.
		return Decision{SupersedesMemoryID: conflict.ID}, true, nil
	}

	id, err := e.store.InsertMemory(ctx, storage.InsertMemoryParams{
		SessionID:          in.SessionID,
		UserID:             in.UserID,
		MemoryDate:         in.MemoryDate,
		Subject:            in.Subject,
		Importance:         in.Importance,
		AccessMode:         in.AccessMode,
		State:              types.StateActive,
		SupersedesMemoryID: &conflict.ID,
		ConfidenceScore:    in.ConfidenceScore,
		Source:             in.Source,
		Content:            in.Content,
	})
	if err != nil {
		if storage.IsDuplicateActive(err) {
			// We won the CAS on the old row but lost the insert race to
			// another writer that landed an identical hash first. The old
			// row is now superseded with nothing replacing it from our
			// side, so it would be stranded forever — best-effort roll it
			// back to active before retrying so the next pass sees the
			// new state of the world and resolves against it.
			if _, rollbackErr := e.store.SetMemoryState(ctx, conflict.ID, types.StateActive); rollbackErr != nil {
				return Decision{}, false, rollbackErr
			}
			return Decision{SupersedesMemoryID: conflict.ID}, true, nil
		}
		return Decision{}, false, err
	}

	return Decision{Outcome: OutcomeSupersede, ReasonCode: ReasonSupersedeContentOverlap, MemoryID: id, SupersedesMemoryID: conflict.ID}, false, nil
}

// RetrieveInput is a caller-supplied retrieval request before validation.
type RetrieveInput struct {
	CorrelationID string
	UserID        string
	Query         string
	Scope         []string
	StateFilter   types.State
	Limit         int
	Endpoint      string // rate-limit bucket key, e.g. "retrieve_memory"
}

// rateLimitMaxRequests and rateLimitWindowSeconds are the retrieve_memory
// rate-limit budget: 50 requests per 60-second fixed window.
const (
	rateLimitMaxRequests   = 50
	rateLimitWindowSeconds = 60
)

// Retrieve validates the request, enforces the per-user rate limit, runs the
// deterministic governed query, and emits the forensic retrieval log.
func (e *Engine) Retrieve(ctx context.Context, in RetrieveInput) ([]types.RetrievedMemory, error) {
	correlationID := in.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	endpoint := in.Endpoint
	if endpoint == "" {
		endpoint = "retrieve_memory"
	}

	validated, err := retrieval.Validate(retrieval.Request{
		UserID:      in.UserID,
		Query:       in.Query,
		Scope:       in.Scope,
		StateFilter: in.StateFilter,
		Limit:       in.Limit,
	})
	if err != nil {
		return nil, err
	}

	allowed, err := e.store.CheckRateLimit(ctx, validated.UserID, endpoint, rateLimitMaxRequests, rateLimitWindowSeconds)
	if err != nil {
		return nil, err
	}
	if !allowed {
		logRateLimitExceeded(ctx, e.log, correlationID, validated.UserID, endpoint)
		return nil, storage.ErrRateLimited
	}

	start := time.Now()
	results, err := e.store.RetrieveMemories(ctx, storage.RetrieveQuery{
		UserID:          validated.UserID,
		QuerySubstring:  validated.Query,
		Scope:           validated.Scope,
		StateFilter:     validated.StateFilter,
		Limit:           validated.Limit,
		AllowedSubjects: validated.Scope,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	logRetrieved(ctx, e.log, correlationID, validated.UserID, validated.Query, validated.Scope, string(validated.StateFilter), ids, time.Since(start).Milliseconds())

	return results, nil
}

// TransitionInput is an administrative request to move a memory to a
// terminal-ish lifecycle state (archive or delete) outside the
// proposal-evaluation flow Evaluate governs.
type TransitionInput struct {
	CorrelationID string
	UserID        string
	MemoryID      int64
	To            types.State
}

// Transition applies an administrative lifecycle transition. It checks
// ownership and the legal transition graph before mutating anything, and
// returns storage.ErrNotFound if the memory does not exist or is not owned
// by UserID, or storage.ErrInvalidTransition if the transition (or a
// concurrent CAS loss) makes the move illegal.
func (e *Engine) Transition(ctx context.Context, in TransitionInput) error {
	correlationID := in.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	from, owner, err := e.store.GetMemoryStateAndOwner(ctx, in.MemoryID)
	if err != nil {
		return err
	}
	if owner != in.UserID {
		return storage.ErrNotFound
	}
	if !types.CanTransition(from, in.To) {
		return storage.ErrInvalidTransition
	}

	changed, err := e.store.SetMemoryState(ctx, in.MemoryID, in.To)
	if err != nil {
		return err
	}
	if !changed {
		// Lost a race with another transition between the read above and
		// this CAS; the caller sees it as an invalid move rather than a
		// silent no-op.
		return storage.ErrInvalidTransition
	}

	logTransitionApplied(ctx, e.log, correlationID, in.UserID, in.MemoryID, string(from), string(in.To))
	return nil
}
