// Package retrieval finds reference excerpts relevant to a tariff query:
// vectorize the query, run a KNN search, keep results above the relevance
// floor.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taxtaxi/tariffd/internal/domain"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
	"github.com/taxtaxi/tariffd/internal/metrics"
)

// Search bounds used when the config leaves them unset.
const (
	DefaultTopK    = 5
	DefaultMaxTopK = 20
)

// Config bounds retrieval behavior.
type Config struct {
	TopK     int     // result count when the caller does not ask for one
	MaxTopK  int     // hard ceiling for the requested k
	MinScore float64 // relevance floor, results below it are dropped
}

// Service answers evidence queries against the reference corpus.
type Service struct {
	corpus      Corpus
	embedder    Embedder
	categorizer Categorizer
	cfg         Config
	logger      *zap.Logger
}

// New creates a retrieval service. Zero config fields fall back to defaults.
func New(corpus Corpus, embedder Embedder, categorizer Categorizer, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	return &Service{
		corpus:      corpus,
		embedder:    embedder,
		categorizer: categorizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Retrieve returns the top-k corpus excerpts for a free-form query, best
// match first. k <= 0 selects the configured default. An empty result set
// is not an error. A deadline hit anywhere in the pipeline surfaces as
// domain.ErrRetrievalTimeout.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]evidence.Document, error) {
	start := time.Now()

	docs, err := s.retrieve(ctx, query, s.clampK(k))

	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrRetrievalTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	metrics.RetrievalDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return docs, err
}

// RetrieveForShipment synthesizes the corpus query from the shipment and
// runs Retrieve with it.
func (s *Service) RetrieveForShipment(ctx context.Context, sh *shipment.Shipment, k int) ([]evidence.Document, error) {
	category := s.categorizer.Categorize(sh.Description())
	return s.Retrieve(ctx, SynthesizeQuery(category, sh), k)
}

func (s *Service) retrieve(ctx context.Context, query string, k int) ([]evidence.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewFieldError("query", "is required")
	}

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, timeoutOr(err, "vectorize query")
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	docs, err := s.corpus.SearchKNN(ctx, emb.Embedding, k)
	if err != nil {
		return nil, timeoutOr(err, "search corpus")
	}

	if s.cfg.MinScore > 0 {
		kept := docs[:0]
		for _, d := range docs {
			if d.Score() >= s.cfg.MinScore {
				kept = append(kept, d)
			}
		}
		docs = kept
	}

	evidence.SortDocuments(docs)
	if len(docs) > k {
		docs = docs[:k]
	}

	s.logger.Debug("Evidence retrieved",
		zap.String("query", query),
		zap.Int("k", k),
		zap.Int("hits", len(docs)),
	)

	return docs, nil
}

func (s *Service) clampK(k int) int {
	if k <= 0 {
		k = s.cfg.TopK
	}
	if k > s.cfg.MaxTopK {
		k = s.cfg.MaxTopK
	}
	return k
}

// SynthesizeQuery builds the deterministic corpus query for a shipment.
// The tariff-class code is omitted when the description matches none.
func SynthesizeQuery(category string, sh *shipment.Shipment) string {
	if category == "" {
		return fmt.Sprintf("import tariff: %s from %s to %s",
			sh.Description(), sh.Origin(), sh.Destination())
	}
	return fmt.Sprintf("import tariff %s: %s from %s to %s",
		category, sh.Description(), sh.Origin(), sh.Destination())
}

func timeoutOr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrRetrievalTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
