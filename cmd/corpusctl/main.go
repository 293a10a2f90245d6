// Corpus and rate card administration for tariffd.
//
// Usage:
//
//	corpusctl index  -file corpus.jsonl [-format jsonl|usitc] [-purge] [-dry-run]
//	corpusctl rates  -file models/rate_card.json
//	corpusctl verify
//
// corpusctl reads the same config/<env>.yaml the server reads, selected
// by TARIFFD_ENV (default "local"), so what it builds is exactly what
// tariffd will find at startup.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taxtaxi/tariffd/internal/config"
	"github.com/taxtaxi/tariffd/internal/db"
	dbRedis "github.com/taxtaxi/tariffd/internal/db/redis"
	"github.com/taxtaxi/tariffd/internal/domain"
	logpkg "github.com/taxtaxi/tariffd/internal/logger"
	"github.com/taxtaxi/tariffd/internal/repository/embcache"
	ollamaEmb "github.com/taxtaxi/tariffd/internal/transport/ollama"
	openaiEmb "github.com/taxtaxi/tariffd/internal/transport/openai"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "index":
		err = runIndex(ctx, os.Args[2:])
	case "rates":
		err = runRates(ctx, os.Args[2:])
	case "verify":
		err = runVerify(ctx, os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "corpusctl: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		cancel()
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `corpusctl manages the tariffd evidence corpus and rate card.

Usage:
  corpusctl index  -file <path> [-format jsonl|usitc] [-purge] [-dry-run]
  corpusctl rates  -file <path>
  corpusctl verify

Commands:
  index   parse, embed and upsert corpus documents, then stamp the
          index metadata with the embedding family
  rates   validate a rate card file and push it to storage
          (running tariffd instances pick it up on restart)
  verify  check that the stored corpus and rate card match the
          configuration tariffd would start with

TARIFFD_ENV selects the config file (default "local").
`)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newCLILogger builds the zap logger library internals log through.
// Stage progress goes to the standard logger; zap only surfaces problems.
func newCLILogger() (*zap.Logger, error) {
	return logpkg.NewLogger(config.GetEnv(), "warn")
}

func openStore(ctx context.Context, cfg config.Config) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	return store, nil
}

// configuredVectorizer resolves the embedding family the config describes,
// merged over the defaults. Returns the provider name alongside.
func configuredVectorizer(cfg config.EmbeddingConfig) (domain.Vectorizer, string, error) {
	var (
		vc    config.VectorizerConfig
		found bool
	)
	for _, v := range cfg.Vectorizers {
		vc, found = v, true
		break
	}
	if !found {
		return domain.Vectorizer{}, "", errors.New("no vectorizer configured under embedding.vectorizers")
	}

	vec := domain.DefaultVectorizer()
	if vc.Provider != "" {
		vec.Provider = vc.Provider
	}
	if vc.Model != "" {
		vec.Model = vc.Model
	}
	if vc.Dimensions > 0 {
		vec.Dimensions = vc.Dimensions
	}
	vec.DocumentInstruction = vc.DocumentInstruction
	vec.QueryInstruction = vc.QueryInstruction
	return vec, vc.Provider, nil
}

// buildDocEmbedder assembles the ingest chain: provider -> Cached -> Instruction.
// The document instruction goes outermost so cache keys include it.
func buildDocEmbedder(
	cfg config.Config,
	provName string,
	vec domain.Vectorizer,
	store db.Store,
	logger *zap.Logger,
) (domain.BatchEmbedder, error) {
	provCfg, ok := cfg.Embedding.Providers[provName]
	if !ok {
		return nil, fmt.Errorf("embedding provider %q not configured", provName)
	}

	var base domain.Embedder
	if provName == "ollama" {
		emb, err := ollamaEmb.NewEmbedder(&ollamaEmb.Config{
			BaseURL: provCfg.BaseURL,
			Model:   vec.Model,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}
		base = emb
	} else {
		// Anything else speaks the OpenAI-compatible API.
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      vec.Model,
			Dimensions: vec.Dimensions,
			Provider:   provName,
			Logger:     logger,
		})
	}

	cacheTTL := time.Duration(cfg.Embedding.CacheTTLHour) * time.Hour
	cached := embcache.New(base, store, vec.Model, cacheTTL, nil, logger)
	if vec.DocumentInstruction != "" {
		return domain.NewInstructionEmbedder(cached, vec.DocumentInstruction), nil
	}
	return cached, nil
}
