package tariffd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taxtaxi/tariffd/internal/db"
	dbRedis "github.com/taxtaxi/tariffd/internal/db/redis"
	"github.com/taxtaxi/tariffd/internal/domain"
	domadv "github.com/taxtaxi/tariffd/internal/domain/advisory"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
	domcard "github.com/taxtaxi/tariffd/internal/domain/ratecard"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
	"github.com/taxtaxi/tariffd/internal/model"
	corpusrepo "github.com/taxtaxi/tariffd/internal/repository/corpus"
	"github.com/taxtaxi/tariffd/internal/repository/embcache"
	cardrepo "github.com/taxtaxi/tariffd/internal/repository/ratecard"
	advisoryuc "github.com/taxtaxi/tariffd/internal/usecase/advisory"
	estimateuc "github.com/taxtaxi/tariffd/internal/usecase/estimate"
	healthuc "github.com/taxtaxi/tariffd/internal/usecase/health"
	retrievaluc "github.com/taxtaxi/tariffd/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for test substitution.
type advisorUseCase interface {
	Compose(ctx context.Context, sh *shipment.Shipment) (domadv.Advisory, error)
}

type retrieverUseCase interface {
	Retrieve(ctx context.Context, query string, k int) ([]evidence.Document, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the tariffd SDK entry point.
type Client struct {
	store     db.Store
	advisor   advisorUseCase
	retriever retrieverUseCase
	healthSvc healthUseCase
	card      domcard.Card
	obs       *observer
}

// New creates a tariffd Client: it connects to the database, loads the
// cost model and rate card, and verifies the corpus index embedding
// family. The provided context covers the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("tariffd: database address required (use WithRedis)")
	}
	if cfg.modelPath == "" {
		return nil, errors.New("tariffd: cost model path required (use WithModelPath)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("tariffd: create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tariffd: database not ready: %w", err)
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	mdl, err := model.Load(cfg.modelPath)
	if err != nil {
		return nil, fmt.Errorf("tariffd: load cost model: %w", err)
	}

	card, err := loadCard(ctx, store, cfg.rateCardPath)
	if err != nil {
		return nil, err
	}

	vec := cfg.vectorizer.toInternal()
	corpusRepo := corpusrepo.New(store, vec)
	if err := corpusRepo.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("tariffd: ensure corpus index: %w", err)
	}

	// Embedder: noop unless provided. Advisories degrade without one,
	// SearchEvidence returns the error.
	nop := zap.NewNop()
	var domEmb domain.Embedder = noopEmbedder{}
	var embChecker healthuc.EmbeddingChecker
	if cfg.embedder != nil {
		adapter := &embedderAdapter{inner: cfg.embedder}
		domEmb = embcache.New(adapter, store, vec.Model, 0, nil, nop)
		if vec.QueryInstruction != "" {
			domEmb = domain.NewInstructionEmbedder(domEmb, vec.QueryInstruction)
		}
		embChecker = adapter
	}

	estimateSvc := estimateuc.New(mdl.Encoder(), mdl.Predictor(), card)
	retrievalSvc := retrievaluc.New(corpusRepo, domEmb, mdl.Encoder(), retrievaluc.Config{
		TopK:     cfg.topK,
		MaxTopK:  cfg.maxTopK,
		MinScore: cfg.minScore,
	}, nop)
	advisorySvc := advisoryuc.New(estimateSvc, retrievalSvc, advisoryuc.Config{
		MaxParallel:      cfg.maxParallel,
		RetrievalTimeout: cfg.retrievalTimeout,
		EvidenceTopK:     cfg.topK,
	}, nop)
	healthSvc := healthuc.New(store, embChecker, healthuc.Info{
		ModelID:          mdl.ID(),
		ModelFingerprint: mdl.Fingerprint(),
		RateCardVersion:  card.Version(),
	})

	return &Client{
		store:     store,
		advisor:   advisorySvc,
		retriever: retrievalSvc,
		healthSvc: healthSvc,
		card:      card,
		obs:       obs,
	}, nil
}

// loadCard prefers the card active in storage and falls back to the
// configured file. Unlike the server, the client never seeds storage.
func loadCard(ctx context.Context, store db.Store, path string) (domcard.Card, error) {
	card, err := cardrepo.New(store).Current(ctx)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, domain.ErrRateCardUnavailable) {
		return domcard.Card{}, fmt.Errorf("tariffd: load rate card: %w", err)
	}
	if path == "" {
		return domcard.Card{}, fmt.Errorf("tariffd: %w (push one with corpusctl rates or set WithRateCardFile)",
			domain.ErrRateCardUnavailable)
	}
	card, err = cardrepo.Load(path)
	if err != nil {
		return domcard.Card{}, fmt.Errorf("tariffd: load rate card file: %w", err)
	}
	return card, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Advise estimates landed cost for every candidate carrier and returns
// a ranked advisory. Validation failures unwrap to ErrInvalidInput.
func (c *Client) Advise(ctx context.Context, req ShipmentRequest) (_ Advisory, err error) {
	start := time.Now()
	defer func() { c.obs.observe("advise", start, err) }()

	sh, err := shipment.New(
		req.ItemDescription,
		req.DeclaredValue,
		req.WeightKG,
		req.OriginRegion,
		req.DestinationRegion,
		req.CandidateCarriers,
	)
	if err != nil {
		return Advisory{}, fmt.Errorf("advise: %w", err)
	}

	adv, err := c.advisor.Compose(ctx, &sh)
	if err != nil {
		return Advisory{}, fmt.Errorf("advise: %w", err)
	}
	return fromInternalAdvisory(&adv), nil
}

// SearchEvidence retrieves the k most relevant tariff reference documents
// for a free-text query. k <= 0 uses the configured default. An empty
// result is not an error.
func (c *Client) SearchEvidence(ctx context.Context, query string, k int) (_ []Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("evidence.search", start, err) }()

	docs, err := c.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search evidence: %w", err)
	}

	out := make([]Document, len(docs))
	for i := range docs {
		out[i] = fromInternalDocument(&docs[i])
	}
	return out, nil
}

// RateCard returns the rate card this client was wired with.
func (c *Client) RateCard() RateCard {
	specs := c.card.Specs()
	rates := make(map[string]CarrierRate, len(specs))
	for code, s := range specs {
		rates[code] = CarrierRate{
			FlatFee:   s.FlatFee,
			PerKG:     s.PerKG,
			Surcharge: s.Surcharge,
		}
	}
	return RateCard{
		Version:  c.card.Version(),
		Currency: c.card.Currency(),
		Carriers: rates,
	}
}

