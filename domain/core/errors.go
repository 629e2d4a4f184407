package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrReportNotFound = fmt.Errorf("%w: report", ErrNotFound)
	ErrTargetNotFound = fmt.Errorf("%w: target", ErrNotFound)

	// Validation errors
	ErrValidation     = errors.New("validation failed")
	ErrMalformedInput = errors.New("malformed metrics input")
	ErrEmptyCorpus    = errors.New("no trained records to summarize")

	// Non-fatal: attached to a result rather than returned
	ErrInconsistentStatistics = errors.New("inconsistent statistics")

	// Collaborator errors
	ErrSourceUnavailable = errors.New("metrics source unavailable")
)

// NewNotFoundError builds a not-found error for a resource and id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewMalformedInputError wraps ErrMalformedInput with a reason
func NewMalformedInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, reason)
}

// NewSourceError wraps a collaborator failure
func NewSourceError(source string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInputError reports whether the caller supplied bad data, as opposed to
// an internal or collaborator failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrEmptyCorpus)
}
