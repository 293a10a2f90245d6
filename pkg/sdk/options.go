package tariffd

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taxtaxi/tariffd/internal/domain"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	modelPath    string
	rateCardPath string

	embedder   Embedder
	vectorizer Vectorizer

	topK     int
	maxTopK  int
	minScore float64

	maxParallel      int
	retrievalTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		topK:             5,
		maxTopK:          20,
		maxParallel:      8,
		retrievalTimeout: 2 * time.Second,
	}
}

// Vectorizer describes the embedding family used for evidence retrieval.
// It must match the family the corpus index was built with; zero fields
// fall back to the defaults (openai/text-embedding-3-small/1536).
type Vectorizer struct {
	Provider         string
	Model            string
	Dimensions       int
	QueryInstruction string
}

func (v Vectorizer) toInternal() domain.Vectorizer {
	out := domain.DefaultVectorizer()
	if v.Provider != "" {
		out.Provider = v.Provider
	}
	if v.Model != "" {
		out.Model = v.Model
	}
	if v.Dimensions > 0 {
		out.Dimensions = v.Dimensions
	}
	out.QueryInstruction = v.QueryInstruction
	return out
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithModelPath sets the cost model artifact to load. Required: the
// model is a startup precondition.
func WithModelPath(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelPath = path
	})
}

// WithRateCardFile sets a rate card file to fall back to when storage
// holds none. The client never writes it back; pushing cards is
// corpusctl's job.
func WithRateCardFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.rateCardPath = path
	})
}

// WithEmbedder sets the query embedding provider for evidence retrieval.
// Without one, SearchEvidence fails and advisories degrade to
// numeric-only rationales.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorizer sets the embedding family. The client refuses to start
// when the corpus index was built with a different one.
func WithVectorizer(v Vectorizer) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorizer = v
	})
}

// WithRetrieval tunes evidence retrieval: the default and maximum result
// counts and the relevance floor. topK also drives how many documents an
// advisory cites. Defaults: 5, 20, 0.
func WithRetrieval(topK, maxTopK int, minScore float64) Option {
	return optionFunc(func(c *clientConfig) {
		if topK > 0 {
			c.topK = topK
		}
		if maxTopK > 0 {
			c.maxTopK = maxTopK
		}
		c.minScore = minScore
	})
}

// WithAdvisory tunes advisory composition: the per-request parallelism
// bound for carrier quotes and the evidence retrieval timeout.
// Defaults: 8, 2s.
func WithAdvisory(maxParallel int, retrievalTimeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		if maxParallel > 0 {
			c.maxParallel = maxParallel
		}
		if retrievalTimeout > 0 {
			c.retrievalTimeout = retrievalTimeout
		}
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
