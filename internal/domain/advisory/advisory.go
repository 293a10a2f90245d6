package advisory

import (
	"fmt"
	"math"

	"github.com/taxtaxi/tariffd/internal/domain/estimate"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
)

// Currency is the currency of all tariff amounts.
const Currency = "USD"

// Quote is one carrier's landed-cost breakdown:
// declared value + predicted tariff + carrier fee.
type Quote struct {
	carrier    shipment.Carrier
	estimate   estimate.Estimate
	carrierFee float64
	total      float64
}

// NewQuote creates a carrier quote.
func NewQuote(carrier shipment.Carrier, est estimate.Estimate, carrierFee, total float64) (Quote, error) {
	if carrier.Code() == "" {
		return Quote{}, fmt.Errorf("quote carrier is required")
	}
	if carrierFee < 0 || math.IsNaN(carrierFee) || math.IsInf(carrierFee, 0) {
		return Quote{}, fmt.Errorf("carrier fee must be a non-negative finite number")
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return Quote{}, fmt.Errorf("total landed cost is not finite")
	}
	return Quote{carrier: carrier, estimate: est, carrierFee: carrierFee, total: total}, nil
}

// Carrier returns the quoted carrier.
func (q *Quote) Carrier() shipment.Carrier { return q.carrier }

// Estimate returns the predicted tariff with its confidence band.
func (q *Quote) Estimate() estimate.Estimate { return q.estimate }

// CarrierFee returns the carrier fee applied to this shipment.
func (q *Quote) CarrierFee() float64 { return q.carrierFee }

// Total returns the total landed cost.
func (q *Quote) Total() float64 { return q.total }

// Advisory is the final recommendation. Quotes must already be ranked,
// cheapest first; the first quote's carrier is the recommendation.
type Advisory struct {
	quotes    []Quote
	documents []evidence.Document
	rationale string
	degraded  bool
}

// New creates an advisory from ranked quotes and supporting evidence.
// An empty documents slice with degraded=true means evidence lookup failed;
// degraded=false means the corpus simply had no relevant matches.
func New(quotes []Quote, documents []evidence.Document, rationale string, degraded bool) (Advisory, error) {
	if len(quotes) == 0 {
		return Advisory{}, fmt.Errorf("advisory requires at least one quote")
	}
	if rationale == "" {
		return Advisory{}, fmt.Errorf("advisory rationale is required")
	}
	return Advisory{
		quotes:    quotes,
		documents: documents,
		rationale: rationale,
		degraded:  degraded,
	}, nil
}

// RecommendedCarrier returns the winning carrier.
func (a *Advisory) RecommendedCarrier() shipment.Carrier { return a.quotes[0].carrier }

// TotalLandedCost returns the winning quote's total.
func (a *Advisory) TotalLandedCost() float64 { return a.quotes[0].total }

// Quotes returns all carrier quotes, cheapest first.
func (a *Advisory) Quotes() []Quote { return a.quotes }

// SupportingDocuments returns the retrieved evidence, best match first.
func (a *Advisory) SupportingDocuments() []evidence.Document { return a.documents }

// Rationale returns the synthesized recommendation text.
func (a *Advisory) Rationale() string { return a.rationale }

// Degraded reports whether evidence retrieval failed for this advisory.
func (a *Advisory) Degraded() bool { return a.degraded }
