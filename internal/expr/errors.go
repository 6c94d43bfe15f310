package expr

import (
	"errors"
	"fmt"
)

// Error represents a parse failure on rule text.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Offset is the byte offset into the expression where the problem
	// was detected.
	Offset int
}

// ErrorCode categorizes expression errors.
type ErrorCode string

const (
	// ErrCodeMalformed indicates the expression does not conform to the
	// rule grammar.
	ErrCodeMalformed ErrorCode = "MALFORMED_EXPRESSION"

	// ErrCodeUnknownField indicates a field reference names a side other
	// than internal or mis.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD_REFERENCE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (offset %d)", e.Code, e.Message, e.Offset)
}

// IsMalformed returns true if the error is a grammar failure.
// Uses errors.As to handle wrapped errors.
func IsMalformed(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeMalformed
	}
	return false
}

// IsUnknownField returns true if the error is an unknown field
// reference. Uses errors.As to handle wrapped errors.
func IsUnknownField(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeUnknownField
	}
	return false
}

func newMalformedError(offset int, format string, args ...any) *Error {
	return &Error{Code: ErrCodeMalformed, Message: fmt.Sprintf(format, args...), Offset: offset}
}

func newUnknownFieldError(offset int, ref string) *Error {
	return &Error{
		Code:    ErrCodeUnknownField,
		Message: fmt.Sprintf("field reference %q does not name the internal or mis side", ref),
		Offset:  offset,
	}
}
