package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a malformed or out-of-range request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoCandidates signals an empty candidate carrier set.
	ErrNoCandidates = errors.New("no candidate carriers")
	// ErrUnknownCarrier signals a candidate carrier absent from the rate card.
	ErrUnknownCarrier = errors.New("carrier not in rate card")
	// ErrModelUnavailable signals that the cost model has not been loaded.
	ErrModelUnavailable = errors.New("cost model unavailable")
	// ErrRetrievalTimeout signals that an evidence lookup exceeded its deadline.
	ErrRetrievalTimeout = errors.New("evidence retrieval timed out")
	// ErrRateCardUnavailable signals that no rate card could be loaded.
	ErrRateCardUnavailable = errors.New("rate card unavailable")
	// ErrVectorizerMismatch signals a corpus index built with a different embedding family.
	ErrVectorizerMismatch = errors.New("corpus index embedding family mismatch")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// FieldError wraps ErrInvalidInput with the offending field and reason.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput.Error(), e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// NewFieldError creates an invalid-input error for a single field.
func NewFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
