package retrieval

import (
	"context"

	"github.com/taxtaxi/tariffd/internal/domain"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
)

// Corpus searches the tariff reference index by vector.
type Corpus interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]evidence.Document, error)
}

// Embedder vectorizes the retrieval query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Categorizer maps an item description to a tariff-class code.
// An empty string means no class matched.
type Categorizer interface {
	Categorize(description string) string
}
