// Package storage defines the persistence contract and the
// sentinel errors shared across backends.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateActive is the distinguished DUPLICATE sentinel:
	// InsertMemory returns this when the active-uniqueness index rejects the
	// insert because another writer already holds an active row with the
	// same (user_id, content_hash).
	ErrDuplicateActive = errors.New("duplicate active memory")

	// ErrInvalidTransition indicates a lifecycle state change that the
	// lifecycle transition graph does not permit.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrRateLimited indicates the caller exceeded its request budget for an
	// endpoint within the current window.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// WrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to ErrNotFound so callers can errors.Is against one
// consistent sentinel regardless of driver.
func WrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateActive reports whether err is or wraps ErrDuplicateActive.
func IsDuplicateActive(err error) bool { return errors.Is(err, ErrDuplicateActive) }
