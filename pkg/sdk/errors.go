package tariffd

import "github.com/taxtaxi/tariffd/internal/domain"

// Sentinel errors returned by client operations. Match with errors.Is;
// returned errors wrap these with operation context.
var (
	// ErrInvalidInput signals a malformed or out-of-range request field.
	ErrInvalidInput = domain.ErrInvalidInput
	// ErrNoCandidates signals an empty candidate carrier set.
	ErrNoCandidates = domain.ErrNoCandidates
	// ErrUnknownCarrier signals a candidate carrier absent from the rate card.
	ErrUnknownCarrier = domain.ErrUnknownCarrier
	// ErrModelUnavailable signals that the cost model has not been loaded.
	ErrModelUnavailable = domain.ErrModelUnavailable
	// ErrRetrievalTimeout signals that an evidence lookup exceeded its deadline.
	ErrRetrievalTimeout = domain.ErrRetrievalTimeout
	// ErrRateCardUnavailable signals that no rate card could be loaded.
	ErrRateCardUnavailable = domain.ErrRateCardUnavailable
	// ErrVectorizerMismatch signals a corpus index built with a different embedding family.
	ErrVectorizerMismatch = domain.ErrVectorizerMismatch
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = domain.ErrVectorDimMismatch
	// ErrNotFound signals a missing resource.
	ErrNotFound = domain.ErrNotFound
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
