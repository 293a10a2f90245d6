// Package ollama provides an embedding provider backed by a local Ollama
// server. It exposes the same surface as the openai transport so the
// decorator chain works with either.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/taxtaxi/tariffd/internal/domain"
	"github.com/taxtaxi/tariffd/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Embedder is an embedding provider using a local Ollama server.
type Embedder struct {
	client   *api.Client
	model    string
	provider string
	logger   *zap.Logger
}

// Config holds the Ollama provider settings.
type Config struct {
	BaseURL string        // server address, e.g. http://localhost:11434
	Model   string        // embedding model name, e.g. nomic-embed-text
	Timeout time.Duration // per-request HTTP timeout
	Logger  *zap.Logger
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Embedder{
		client:   api.NewClient(base, &http.Client{Timeout: timeout}),
		model:    cfg.Model,
		provider: "ollama",
		logger:   cfg.Logger,
	}, nil
}

// Embed implements domain.Embedder. Ollama reports no token usage, so both
// token counts stay zero. Batch requests go through domain.BatchFallback:
// the endpoint takes one prompt per call.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	}

	start := time.Now()

	resp, err := e.client.Embeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(duration.Seconds())

	embedding := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		embedding[i] = float32(v)
	}

	return domain.EmbeddingResult{Embedding: embedding}, nil
}

// HealthCheck verifies server availability by listing local models.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.List(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError wraps provider failures with domain.ErrEmbeddingProviderError
// for correct 502 mapping.
func parseAPIError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			statusErr.StatusCode, statusErr.ErrorMessage, domain.ErrEmbeddingProviderError)
	}
	return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
}
