package rule

import (
	"errors"
	"fmt"
)

// Error represents a failure while resolving a mapping entry's rule
// expression against a fragment store.
//
// Resolution errors are per-entry, not per-run: the engine skips the
// offending entry, logs it, and continues with the remaining entries.
// One bad entry must not abort the whole analysis.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EntryID identifies the mapping entry being resolved.
	EntryID int64

	// FragmentID identifies the offending fragment reference, when one
	// is known (unknown-reference errors).
	FragmentID int64
}

// ErrorCode categorizes resolution errors.
type ErrorCode string

const (
	// ErrCodeUnknownReference indicates a mapping entry references a
	// fragment ID absent from the store.
	ErrCodeUnknownReference ErrorCode = "UNKNOWN_RULE_REFERENCE"

	// ErrCodeCyclicReference indicates fragment substitution did not
	// terminate within the iteration bound - a self-referential or
	// mutually recursive fragment definition.
	ErrCodeCyclicReference ErrorCode = "CYCLIC_RULE_REFERENCE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.FragmentID != 0 {
		return fmt.Sprintf("%s: %s (entry=%d, fragment=%d)", e.Code, e.Message, e.EntryID, e.FragmentID)
	}
	return fmt.Sprintf("%s: %s (entry=%d)", e.Code, e.Message, e.EntryID)
}

// IsUnknownReference returns true if the error is an unknown fragment
// reference. Uses errors.As to handle wrapped errors.
func IsUnknownReference(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownReference
	}
	return false
}

// IsCyclic returns true if the error is a cyclic reference error.
// Uses errors.As to handle wrapped errors.
func IsCyclic(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeCyclicReference
	}
	return false
}

// NewUnknownReferenceError creates an Error for a reference to a
// fragment ID the store does not hold.
func NewUnknownReferenceError(entryID, fragmentID int64) *Error {
	return &Error{
		Code:       ErrCodeUnknownReference,
		Message:    "rule expression references unknown fragment",
		EntryID:    entryID,
		FragmentID: fragmentID,
	}
}

// NewCyclicReferenceError creates an Error for an expansion that
// exceeded the iteration bound.
func NewCyclicReferenceError(entryID int64, passes int) *Error {
	return &Error{
		Code:    ErrCodeCyclicReference,
		Message: fmt.Sprintf("fragment substitution did not terminate after %d passes", passes),
		EntryID: entryID,
	}
}
