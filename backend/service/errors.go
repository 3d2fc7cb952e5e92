package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced tender, submission, document or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the authorization guard denies an action
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is returned when the tender state machine rejects an operation
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidInput is returned for missing or malformed request fields
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when a unique value is already taken
	ErrConflict = errors.New("conflict")
	// ErrStorageUnavailable is returned when the store stays busy past the retry budget.
	// Callers may retry the whole request.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrIntegrityViolation matches any *IntegrityViolationError
	ErrIntegrityViolation = errors.New("audit chain integrity violation")
)

// IntegrityViolationError reports the first ledger entry whose signature does not verify.
// Every entry after it is unverifiable as a consequence.
type IntegrityViolationError struct {
	EntryID      int64
	Reason       string
	Unverifiable int
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("audit chain broken at entry %d: %s (%d later entries unverifiable)",
		e.EntryID, e.Reason, e.Unverifiable)
}

func (e *IntegrityViolationError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func invalidTransition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}
