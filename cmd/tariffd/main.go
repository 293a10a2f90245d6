package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/taxtaxi/tariffd/internal/config"
	"github.com/taxtaxi/tariffd/internal/db"
	dbRedis "github.com/taxtaxi/tariffd/internal/db/redis"
	"github.com/taxtaxi/tariffd/internal/domain"
	domcard "github.com/taxtaxi/tariffd/internal/domain/ratecard"
	logpkg "github.com/taxtaxi/tariffd/internal/logger"
	"github.com/taxtaxi/tariffd/internal/metrics"
	"github.com/taxtaxi/tariffd/internal/model"
	corpusrepo "github.com/taxtaxi/tariffd/internal/repository/corpus"
	"github.com/taxtaxi/tariffd/internal/repository/embcache"
	cardrepo "github.com/taxtaxi/tariffd/internal/repository/ratecard"
	chiTransport "github.com/taxtaxi/tariffd/internal/transport/chi"
	ollamaEmb "github.com/taxtaxi/tariffd/internal/transport/ollama"
	openaiEmb "github.com/taxtaxi/tariffd/internal/transport/openai"
	advisoryuc "github.com/taxtaxi/tariffd/internal/usecase/advisory"
	embeddinguc "github.com/taxtaxi/tariffd/internal/usecase/embedding"
	estimateuc "github.com/taxtaxi/tariffd/internal/usecase/estimate"
	healthuc "github.com/taxtaxi/tariffd/internal/usecase/health"
	retrievaluc "github.com/taxtaxi/tariffd/internal/usecase/retrieval"
	"github.com/taxtaxi/tariffd/internal/version"
)

func main() {
	// Load configuration based on TARIFFD_ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tariffd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// The cost model is a startup precondition: no model, no predictions.
	mdl, err := model.Load(cfg.Model.Path)
	if err != nil {
		logger.Fatal("Failed to load cost model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	logger.Info("Cost model loaded",
		zap.String("model_id", mdl.ID()),
		zap.String("fingerprint", mdl.Fingerprint()),
		zap.Float64("validation_mae", mdl.ValidationMAE()),
	)

	card := loadRateCard(ctx, cardrepo.New(store), cfg.RateCard.SeedPath, logger)
	logger.Info("Rate card active",
		zap.Int("version", card.Version()),
		zap.String("currency", card.Currency()),
		zap.Strings("carriers", card.Carriers()),
	)

	// Embedding family: the corpus index must have been built with the same one.
	vecCfg, provName := pickVectorizer(cfg.Embedding)
	provCfg := cfg.Embedding.Providers[provName]
	vec := vectorizerFromConfig(vecCfg)

	corpusRepo := corpusrepo.New(store, vec).WithHNSW(corpusrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err := corpusRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Corpus index unavailable", zap.Error(err))
	}

	queryEmbedder, err := buildEmbedder(
		provName, provCfg, vec, vec.QueryInstruction,
		store, time.Duration(cfg.Embedding.CacheTTLHour)*time.Hour, logger,
	)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	logger.Info("Query embedder created",
		zap.String("provider", vec.Provider),
		zap.String("model", vec.Model),
		zap.Int("dimensions", vec.Dimensions),
	)

	// Create use case services
	estimateSvc := estimateuc.New(mdl.Encoder(), mdl.Predictor(), card)
	retrievalSvc := retrievaluc.New(corpusRepo, queryEmbedder, mdl.Encoder(), retrievaluc.Config{
		TopK:     cfg.Retrieval.TopK,
		MaxTopK:  cfg.Retrieval.MaxTopK,
		MinScore: cfg.Retrieval.MinScore,
	}, logger)
	advisorySvc := advisoryuc.New(estimateSvc, retrievalSvc, advisoryuc.Config{
		MaxParallel:      cfg.Advisory.MaxParallel,
		RetrievalTimeout: time.Duration(cfg.Retrieval.TimeoutMS) * time.Millisecond,
		EvidenceTopK:     cfg.Advisory.EvidenceTopK,
	}, logger)

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder), healthuc.Info{
		ModelID:          mdl.ID(),
		ModelFingerprint: mdl.Fingerprint(),
		RateCardVersion:  card.Version(),
	})

	// Create chi server
	server := chiTransport.NewServer(advisorySvc, retrievalSvc, card, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// loadRateCard prefers the card active in storage; a fresh deployment seeds
// storage from the configured file.
func loadRateCard(ctx context.Context, repo *cardrepo.Repo, seedPath string, logger *zap.Logger) domcard.Card {
	card, err := repo.Current(ctx)
	if err == nil {
		return card
	}
	if !errors.Is(err, domain.ErrRateCardUnavailable) {
		logger.Fatal("Failed to load rate card", zap.Error(err))
	}

	logger.Info("No rate card in storage, seeding from file", zap.String("path", seedPath))
	card, err = cardrepo.Load(seedPath)
	if err != nil {
		logger.Fatal("Failed to load rate card seed", zap.String("path", seedPath), zap.Error(err))
	}
	if err := repo.Put(ctx, card); err != nil {
		logger.Fatal("Failed to store rate card", zap.Error(err))
	}
	return card
}

// pickVectorizer takes the first configured vectorizer.
func pickVectorizer(cfg config.EmbeddingConfig) (config.VectorizerConfig, string) {
	for _, vc := range cfg.Vectorizers {
		return vc, vc.Provider
	}
	return config.VectorizerConfig{}, ""
}

// vectorizerFromConfig merges the configured embedding family over the defaults.
func vectorizerFromConfig(vc config.VectorizerConfig) domain.Vectorizer {
	v := domain.DefaultVectorizer()
	if vc.Provider != "" {
		v.Provider = vc.Provider
	}
	if vc.Model != "" {
		v.Model = vc.Model
	}
	if vc.Dimensions > 0 {
		v.Dimensions = vc.Dimensions
	}
	v.DocumentInstruction = vc.DocumentInstruction
	v.QueryInstruction = vc.QueryInstruction
	return v
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vec domain.Vectorizer,
	instruction string,
	store db.Store,
	cacheTTL time.Duration,
	logger *zap.Logger,
) (domain.Embedder, error) {
	base, err := newProviderEmbedder(provName, provCfg, vec, logger)
	if err != nil {
		return nil, err
	}

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, vec.Model, cacheTTL, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (request log lines)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provName, vec.Model, logger)

	// Instruction prefix goes outermost so cache keys include it
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), nil
	}

	return embedder, nil
}

// newProviderEmbedder creates the base provider transport. Unknown providers
// fall through to the OpenAI-compatible client, which covers Nebius and
// other API-compatible hosts.
func newProviderEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vec domain.Vectorizer,
	logger *zap.Logger,
) (domain.Embedder, error) {
	if provName == "ollama" {
		emb, err := ollamaEmb.NewEmbedder(&ollamaEmb.Config{
			BaseURL: provCfg.BaseURL,
			Model:   vec.Model,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}
		return emb, nil
	}

	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vec.Model,
		Dimensions: vec.Dimensions,
		Provider:   provName,
		Logger:     logger,
	}), nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
