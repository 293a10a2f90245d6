// Package advisory composes the full recommendation: one quote per
// candidate carrier computed in parallel, evidence retrieval on its own
// clock, deterministic ranking and rationale.
package advisory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taxtaxi/tariffd/internal/domain"
	domadv "github.com/taxtaxi/tariffd/internal/domain/advisory"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
	"github.com/taxtaxi/tariffd/internal/metrics"
)

// Composer defaults used when the config leaves them unset.
const (
	DefaultMaxParallel      = 8
	DefaultRetrievalTimeout = 2 * time.Second
	DefaultEvidenceTopK     = 5
)

// maxRationaleRefs caps the evidence ids cited in the rationale text.
const maxRationaleRefs = 3

// Config bounds composer concurrency and evidence fetching.
type Config struct {
	MaxParallel      int           // concurrent carrier estimations
	RetrievalTimeout time.Duration // evidence budget, independent of estimation
	EvidenceTopK     int           // documents attached to the advisory
}

// Service assembles carrier advisories.
type Service struct {
	estimator Estimator
	retriever Retriever
	cfg       Config
	logger    *zap.Logger
}

// New creates a composer service. Zero config fields fall back to defaults.
func New(estimator Estimator, retriever Retriever, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if cfg.EvidenceTopK <= 0 {
		cfg.EvidenceTopK = DefaultEvidenceTopK
	}
	return &Service{
		estimator: estimator,
		retriever: retriever,
		cfg:       cfg,
		logger:    logger,
	}
}

// Compose prices every candidate carrier and recommends the cheapest total
// landed cost. Any carrier estimation failure fails the advisory; evidence
// retrieval failure only degrades it to a numeric-only rationale.
func (s *Service) Compose(ctx context.Context, sh *shipment.Shipment) (domadv.Advisory, error) {
	start := time.Now()

	adv, err := s.compose(ctx, sh)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case adv.Degraded():
		outcome = "degraded"
	}
	metrics.AdvisoriesTotal.WithLabelValues(outcome).Inc()
	metrics.AdvisoryDuration.Observe(time.Since(start).Seconds())

	return adv, err
}

func (s *Service) compose(ctx context.Context, sh *shipment.Shipment) (domadv.Advisory, error) {
	carriers := sh.Carriers()
	if len(carriers) == 0 {
		return domadv.Advisory{}, domain.ErrNoCandidates
	}

	quotes := make([]domadv.Quote, len(carriers))
	var docs []evidence.Document
	var degraded bool

	g, gctx := errgroup.WithContext(ctx)
	// One slot beyond the carrier bound so retrieval always starts
	// alongside the first estimation.
	g.SetLimit(s.cfg.MaxParallel + 1)

	g.Go(func() error {
		rctx, cancel := context.WithTimeout(gctx, s.cfg.RetrievalTimeout)
		defer cancel()

		found, err := s.retriever.RetrieveForShipment(rctx, sh, s.cfg.EvidenceTopK)
		if err != nil {
			if gctx.Err() != nil {
				// The group is already failing; the advisory errors out regardless.
				return nil
			}
			degraded = true
			metrics.RetrievalDegradedTotal.Inc()
			s.logger.Warn("Evidence retrieval degraded",
				zap.Error(err),
				zap.Duration("timeout", s.cfg.RetrievalTimeout),
			)
			return nil
		}
		docs = found
		return nil
	})

	for i, carrier := range carriers {
		g.Go(func() error {
			quote, err := s.estimator.Quote(gctx, sh, carrier)
			if err != nil {
				return err
			}
			quotes[i] = quote
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domadv.Advisory{}, err
	}

	rankQuotes(quotes)

	adv, err := domadv.New(quotes, docs, buildRationale(sh, quotes, docs, degraded), degraded)
	if err != nil {
		return domadv.Advisory{}, fmt.Errorf("assemble advisory: %w", err)
	}

	s.logger.Info("Advisory composed",
		zap.String("carrier", adv.RecommendedCarrier().Code()),
		zap.Float64("total", adv.TotalLandedCost()),
		zap.Int("quotes", len(quotes)),
		zap.Int("documents", len(docs)),
		zap.Bool("degraded", degraded),
	)

	return adv, nil
}

// rankQuotes orders quotes by total landed cost ascending at cent precision,
// then by tighter estimate span, then by carrier code.
func rankQuotes(quotes []domadv.Quote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		ti, tj := cents(quotes[i].Total()), cents(quotes[j].Total())
		if ti != tj {
			return ti < tj
		}
		ei, ej := quotes[i].Estimate(), quotes[j].Estimate()
		si, sj := cents(ei.Span()), cents(ej.Span())
		if si != sj {
			return si < sj
		}
		return quotes[i].Carrier().Code() < quotes[j].Carrier().Code()
	})
}

// cents rounds a dollar amount to integer cents for comparisons.
func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// buildRationale renders the deterministic recommendation text: the winning
// breakdown, the margin over the runner-up, and either the evidence trail
// or a degradation note.
func buildRationale(sh *shipment.Shipment, quotes []domadv.Quote, docs []evidence.Document, degraded bool) string {
	var b strings.Builder

	best := &quotes[0]
	est := best.Estimate()

	fmt.Fprintf(&b,
		"%s is the cheapest option at %s total landed cost: %s declared value + %s estimated tariff (%s to %s) + %s carrier fee.",
		best.Carrier().Spelling(), money(best.Total()),
		money(sh.DeclaredValue()), money(est.Predicted()),
		money(est.Low()), money(est.High()), money(best.CarrierFee()))

	if len(quotes) > 1 {
		runner := &quotes[1]
		margin := runner.Total() - best.Total()
		runnerEst := runner.Estimate()
		switch {
		case cents(margin) > 0:
			fmt.Fprintf(&b, " It beats %s by %s.", runner.Carrier().Spelling(), money(margin))
		case cents(est.Span()) < cents(runnerEst.Span()):
			fmt.Fprintf(&b, " It ties %s on total cost with a tighter tariff range.", runner.Carrier().Spelling())
		default:
			fmt.Fprintf(&b, " It ties %s on total cost and tariff range; carriers are ordered by code.", runner.Carrier().Spelling())
		}
	}

	switch {
	case degraded:
		b.WriteString(" Reference lookup was unavailable; the comparison above is numeric only.")
	case len(docs) > 0:
		refs := make([]string, 0, maxRationaleRefs)
		for i := range docs {
			if i == maxRationaleRefs {
				break
			}
			refs = append(refs, docs[i].SourceID())
		}
		fmt.Fprintf(&b, " Supporting references: %s.", strings.Join(refs, ", "))
	}

	return b.String()
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
