package chi

import (
	domadv "github.com/taxtaxi/tariffd/internal/domain/advisory"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
	"github.com/taxtaxi/tariffd/internal/domain/ratecard"
)

// Machine-readable error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest             = "bad_request"
	ErrorCodeValidationFailed       = "validation_failed"
	ErrorCodeNoCandidates           = "no_candidates"
	ErrorCodeUnknownCarrier         = "unknown_carrier"
	ErrorCodeNotFound               = "not_found"
	ErrorCodeModelUnavailable       = "model_unavailable"
	ErrorCodeRateCardUnavailable    = "ratecard_unavailable"
	ErrorCodeRetrievalTimeout       = "retrieval_timeout"
	ErrorCodeEmbeddingProviderError = "embedding_provider_error"
	ErrorCodeUnauthorized           = "unauthorized"
	ErrorCodeInternalError          = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AdvisoryRequest is the POST /api/v1/advisories body.
type AdvisoryRequest struct {
	ItemDescription   string   `json:"item_description"`
	DeclaredValue     float64  `json:"declared_value"`
	WeightKG          float64  `json:"weight_kg"`
	OriginRegion      string   `json:"origin_region"`
	DestinationRegion string   `json:"destination_region"`
	CandidateCarriers []string `json:"candidate_carriers"`
}

// QuoteResponse is one carrier's landed-cost breakdown.
type QuoteResponse struct {
	Carrier         string  `json:"carrier"`
	PredictedTariff float64 `json:"predicted_tariff"`
	TariffLow       float64 `json:"tariff_low"`
	TariffHigh      float64 `json:"tariff_high"`
	CarrierFee      float64 `json:"carrier_fee"`
	TotalLandedCost float64 `json:"total_landed_cost"`
}

// DocumentResponse is one retrieved reference excerpt.
type DocumentResponse struct {
	SourceID string  `json:"source_id"`
	Excerpt  string  `json:"excerpt"`
	Score    float64 `json:"score"`
}

// AdvisoryResponse is the POST /api/v1/advisories result.
type AdvisoryResponse struct {
	RecommendedCarrier  string             `json:"recommended_carrier"`
	TotalLandedCost     float64            `json:"total_landed_cost"`
	Currency            string             `json:"currency"`
	Quotes              []QuoteResponse    `json:"quotes"`
	Rationale           string             `json:"rationale"`
	SupportingDocuments []DocumentResponse `json:"supporting_documents"`
	Degraded            bool               `json:"degraded"`
}

// EvidenceSearchRequest is the POST /api/v1/evidence/search body.
// TopK outside [1, max] is clamped, not rejected.
type EvidenceSearchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// EvidenceSearchResponse lists retrieved excerpts, best match first.
type EvidenceSearchResponse struct {
	Items []DocumentResponse `json:"items"`
	Total int                `json:"total"`
}

// RateCardResponse is the GET /api/v1/ratecard result.
type RateCardResponse struct {
	Version  int                      `json:"version"`
	Currency string                   `json:"currency"`
	Carriers map[string]ratecard.Spec `json:"carriers"`
}

// HealthResponse is the GET /health result.
type HealthResponse struct {
	Status           string            `json:"status"`
	Checks           map[string]string `json:"checks"`
	ModelID          string            `json:"model_id"`
	ModelFingerprint string            `json:"model_fingerprint"`
	RateCardVersion  int               `json:"ratecard_version"`
}

func advisoryToDTO(adv *domadv.Advisory) AdvisoryResponse {
	quotes := adv.Quotes()
	items := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		items[i] = quoteToDTO(&quotes[i])
	}

	docs := adv.SupportingDocuments()
	docItems := make([]DocumentResponse, len(docs))
	for i := range docs {
		docItems[i] = documentToDTO(&docs[i])
	}

	return AdvisoryResponse{
		RecommendedCarrier:  adv.RecommendedCarrier().Spelling(),
		TotalLandedCost:     adv.TotalLandedCost(),
		Currency:            domadv.Currency,
		Quotes:              items,
		Rationale:           adv.Rationale(),
		SupportingDocuments: docItems,
		Degraded:            adv.Degraded(),
	}
}

func quoteToDTO(q *domadv.Quote) QuoteResponse {
	est := q.Estimate()
	return QuoteResponse{
		Carrier:         q.Carrier().Spelling(),
		PredictedTariff: est.Predicted(),
		TariffLow:       est.Low(),
		TariffHigh:      est.High(),
		CarrierFee:      q.CarrierFee(),
		TotalLandedCost: q.Total(),
	}
}

func documentToDTO(d *evidence.Document) DocumentResponse {
	return DocumentResponse{
		SourceID: d.SourceID(),
		Excerpt:  d.Excerpt(),
		Score:    d.Score(),
	}
}
