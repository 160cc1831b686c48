// Package service holds the seat lifecycle engine and identity bootstrap.
// Handlers call into it with an authenticated identity and receive either
// a result or one of the sentinel errors below.
package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAuthenticated is returned when no caller identity is present.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the caller's status is not active.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFoundOrDenied covers a missing seat, a seat owned by someone
	// else and a precondition that no longer holds.  Callers cannot tell
	// them apart on purpose.
	ErrNotFoundOrDenied = errors.New("seat not found or not permitted")
	// ErrValidationFailed is returned when required input is missing.
	ErrValidationFailed = errors.New("validation failed")
	// ErrStoreUnavailable wraps any storage failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError lists the request fields that failed validation.  It
// matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
