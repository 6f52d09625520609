package domain

import (
	"errors"
	"strings"
)

// Sentinel errors shared by the repository, service and delivery layers.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidCapacity = errors.New("maximum attendees cannot be less than current attendees count")
	ErrEventFull       = errors.New("event is full")
	ErrAlreadyJoined   = errors.New("already joined")
	ErrValidation      = errors.New("validation failed")

	// ErrPreconditionFailed is returned by conditional store writes whose guard
	// predicate did not match any row. Callers re-read to find out why.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrConflict is returned when a conditional write kept losing to concurrent writers.
	ErrConflict = errors.New("concurrent modification")
)

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Problems []string
}

// NewValidationError returns a ValidationError for the given messages.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(e.Problems, "; ")
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
