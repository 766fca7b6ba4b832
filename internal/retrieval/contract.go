// Package retrieval implements the Retrieval Contract's input validation
// and scope normalization: the part of a retrieval call that
// happens before any query runs.
package retrieval

import (
	"fmt"

	"github.com/ridgeway/memkeep/internal/types"
)

// MaxLimit is the hard cap on returned rows.
const MaxLimit = 20

// DefaultStateFilter is used when the caller does not specify one.
const DefaultStateFilter = types.StateActive

// Request is the caller-supplied shape of a retrieve_memory call before
// validation.
type Request struct {
	UserID      string
	Query       string
	Scope       []string
	StateFilter types.State
	Limit       int
}

// Validated is a Request that has passed Validate: user present,
// state_filter within the allowed set, limit clamped to [1, MaxLimit].
type Validated struct {
	UserID      string
	Query       string
	Scope       []string
	StateFilter types.State
	Limit       int
}

// Validate checks user present, validates state_filter within the allowed
// set, and clamps limit.
func Validate(req Request) (Validated, error) {
	if req.UserID == "" {
		return Validated{}, fmt.Errorf("user is strictly required for retrieval")
	}

	stateFilter := req.StateFilter
	if stateFilter == "" {
		stateFilter = DefaultStateFilter
	}
	if !types.AllowedStateFilters[stateFilter] {
		return Validated{}, fmt.Errorf("invalid state_filter %q", stateFilter)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	scope := req.Scope
	if len(scope) == 0 {
		scope = []string{"*"}
	} else {
		normalized := make([]string, len(scope))
		for i, s := range scope {
			normalized[i] = types.NormalizeSubject(s)
		}
		scope = normalized
	}

	return Validated{
		UserID:      req.UserID,
		Query:       req.Query,
		Scope:       scope,
		StateFilter: stateFilter,
		Limit:       limit,
	}, nil
}
