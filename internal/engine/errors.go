package engine

import (
	"errors"
	"fmt"
)

// Snapshot construction fails fast on inputs that indicate a retrieval
// problem rather than a "nothing configured" workspace. The caller is
// responsible for distinguishing the two before invoking the engine.
var (
	// ErrNoFragments indicates an empty fragment store for a workspace
	// expected to have rules.
	ErrNoFragments = errors.New("engine: no rule fragments for workspace")

	// ErrNoMappings indicates an empty rule-to-state mapping table.
	ErrNoMappings = errors.New("engine: no rule mapping entries for workspace")
)

// StateError reports a reconciliation-state invariant violation: an
// internal state whose parent is missing, deleted, or itself internal.
// The parent chain is at most one hop by contract; violations are
// configuration defects and fail snapshot construction loudly rather
// than looping.
type StateError struct {
	StateID  int64
	ParentID int64
	Message  string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.ParentID != 0 {
		return fmt.Sprintf("invalid recon state %d: %s (parent=%d)", e.StateID, e.Message, e.ParentID)
	}
	return fmt.Sprintf("invalid recon state %d: %s", e.StateID, e.Message)
}

// IsStateError returns true if the error is a state invariant violation.
// Uses errors.As to handle wrapped errors.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
