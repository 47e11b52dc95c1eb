package domain

import (
	"errors"
	"fmt"
)

// Error classes for retrieval failures. Wrapped errors stay matchable
// with errors.Is, so callers can branch on the class without string
// comparisons.
var (
	// ErrInvalidInput marks caller mistakes: an empty query, mismatched
	// vector lengths. Not retryable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExternalService marks a failed embedding-provider call or a
	// failed storage-tier call mechanism.
	ErrExternalService = errors.New("external service failure")

	// ErrParse marks a stored embedding that could not be decoded.
	ErrParse = errors.New("parse failure")
)

// InvalidInputf builds an ErrInvalidInput-classed error.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ExternalServicef builds an ErrExternalService-classed error.
func ExternalServicef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExternalService, fmt.Sprintf(format, args...))
}

// Parsef builds an ErrParse-classed error.
func Parsef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
