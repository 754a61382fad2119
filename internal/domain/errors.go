// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// The more specific errors below wrap it, so callers can test for
	// errors.Is(err, ErrValidation) to detect any invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTaskType is returned when a task type is not one of the known kinds.
	ErrInvalidTaskType = fmt.Errorf("%w: invalid task type", ErrValidation)

	// ErrInvalidSubject is returned when the barcode/OSM UID combination does not
	// match what the task type expects.
	ErrInvalidSubject = fmt.Errorf("%w: invalid task subject", ErrValidation)

	// ErrInvalidLanguage is returned when a language tag is empty or malformed.
	ErrInvalidLanguage = fmt.Errorf("%w: invalid language tag", ErrValidation)

	// ErrUnexpectedLanguage is returned when a language is set on a task type
	// that is not language aware.
	ErrUnexpectedLanguage = fmt.Errorf("%w: task type does not carry a language", ErrValidation)

	// ErrEmptySourceUser is returned when a task has no originating user.
	ErrEmptySourceUser = fmt.Errorf("%w: source user ID cannot be empty", ErrValidation)

	// ErrEmptyText is returned when a report or feedback has no text.
	ErrEmptyText = fmt.Errorf("%w: text cannot be empty", ErrValidation)

	// ErrInconsistentAssignment is returned when exactly one of assignee and
	// assign time is set.
	ErrInconsistentAssignment = fmt.Errorf("%w: assignee and assign time must be set together", ErrValidation)

	// ErrConflictingLanguageFilter is returned when a listing asks for a
	// specific language and for tasks without a language at the same time.
	ErrConflictingLanguageFilter = fmt.Errorf("%w: lang and only-no-lang filters are mutually exclusive", ErrValidation)

	// ErrInvalidRightsLevel is returned when a rights level string is unknown.
	ErrInvalidRightsLevel = fmt.Errorf("%w: invalid rights level", ErrValidation)
)
