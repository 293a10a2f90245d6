// Package estimate prices a single carrier option: encode the shipment,
// predict the tariff, apply the carrier fee from the active rate card.
package estimate

import (
	"context"
	"fmt"
	"time"

	"github.com/taxtaxi/tariffd/internal/domain/advisory"
	"github.com/taxtaxi/tariffd/internal/domain/ratecard"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
	"github.com/taxtaxi/tariffd/internal/metrics"
)

// Service turns one (shipment, carrier) pair into a landed-cost quote.
type Service struct {
	encoder   Encoder
	predictor Predictor
	card      ratecard.Card
}

// New creates an estimation service over the loaded model and rate card.
func New(encoder Encoder, predictor Predictor, card ratecard.Card) *Service {
	return &Service{
		encoder:   encoder,
		predictor: predictor,
		card:      card,
	}
}

// Quote prices the shipment for a single candidate carrier.
// Total landed cost is declared value + predicted tariff + carrier fee.
func (s *Service) Quote(ctx context.Context, sh *shipment.Shipment, carrier shipment.Carrier) (advisory.Quote, error) {
	if err := ctx.Err(); err != nil {
		return advisory.Quote{}, fmt.Errorf("quote %s: %w", carrier.Code(), err)
	}

	start := time.Now()

	vec, err := s.encoder.Encode(sh, carrier)
	if err != nil {
		return advisory.Quote{}, fmt.Errorf("encode %s: %w", carrier.Code(), err)
	}

	est, err := s.predictor.Predict(vec)
	if err != nil {
		return advisory.Quote{}, fmt.Errorf("predict %s: %w", carrier.Code(), err)
	}

	metrics.PredictionDuration.Observe(time.Since(start).Seconds())

	fee, err := s.card.Fee(carrier, sh)
	if err != nil {
		return advisory.Quote{}, err
	}

	total := sh.DeclaredValue() + est.Predicted() + fee

	quote, err := advisory.NewQuote(carrier, est, fee, total)
	if err != nil {
		return advisory.Quote{}, fmt.Errorf("quote %s: %w", carrier.Code(), err)
	}

	return quote, nil
}
