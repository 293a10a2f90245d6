package tariffd

import (
	domadv "github.com/taxtaxi/tariffd/internal/domain/advisory"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
)

// ShipmentRequest describes a shipment to estimate.
type ShipmentRequest struct {
	ItemDescription   string
	DeclaredValue     float64
	WeightKG          float64
	OriginRegion      string
	DestinationRegion string
	CandidateCarriers []string
}

// Quote is one carrier's landed-cost breakdown. The tariff interval
// [TariffLow, TariffHigh] always contains PredictedTariff.
type Quote struct {
	Carrier         string
	PredictedTariff float64
	TariffLow       float64
	TariffHigh      float64
	CarrierFee      float64
	TotalLandedCost float64
}

// Document is a supporting evidence snippet.
type Document struct {
	SourceID string
	Excerpt  string
	Score    float64
}

// Advisory is a ranked carrier recommendation. Quotes are ordered by
// total landed cost ascending; the first one is the recommendation.
// Degraded means evidence retrieval was unavailable and the rationale
// is numeric-only.
type Advisory struct {
	RecommendedCarrier  string
	TotalLandedCost     float64
	Currency            string
	Quotes              []Quote
	Rationale           string
	SupportingDocuments []Document
	Degraded            bool
}

// RateCard is the active rate card snapshot.
type RateCard struct {
	Version  int
	Currency string
	Carriers map[string]CarrierRate
}

// CarrierRate is one carrier's fee schedule. Surcharge holds the raw
// expression text, if any.
type CarrierRate struct {
	FlatFee   float64
	PerKG     float64
	Surcharge string
}

func fromInternalAdvisory(adv *domadv.Advisory) Advisory {
	internalQuotes := adv.Quotes()
	quotes := make([]Quote, len(internalQuotes))
	for i := range internalQuotes {
		quotes[i] = fromInternalQuote(&internalQuotes[i])
	}

	internalDocs := adv.SupportingDocuments()
	docs := make([]Document, len(internalDocs))
	for i := range internalDocs {
		docs[i] = fromInternalDocument(&internalDocs[i])
	}

	return Advisory{
		RecommendedCarrier:  adv.RecommendedCarrier().Spelling(),
		TotalLandedCost:     adv.TotalLandedCost(),
		Currency:            domadv.Currency,
		Quotes:              quotes,
		Rationale:           adv.Rationale(),
		SupportingDocuments: docs,
		Degraded:            adv.Degraded(),
	}
}

func fromInternalQuote(q *domadv.Quote) Quote {
	est := q.Estimate()
	return Quote{
		Carrier:         q.Carrier().Spelling(),
		PredictedTariff: est.Predicted(),
		TariffLow:       est.Low(),
		TariffHigh:      est.High(),
		CarrierFee:      q.CarrierFee(),
		TotalLandedCost: q.Total(),
	}
}

func fromInternalDocument(d *evidence.Document) Document {
	return Document{
		SourceID: d.SourceID(),
		Excerpt:  d.Excerpt(),
		Score:    d.Score(),
	}
}
