// Package chi exposes the tariff advisory API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/taxtaxi/tariffd/internal/domain"
	domadv "github.com/taxtaxi/tariffd/internal/domain/advisory"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
	"github.com/taxtaxi/tariffd/internal/domain/ratecard"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
	healthuc "github.com/taxtaxi/tariffd/internal/usecase/health"
)

// Advisor composes carrier advisories.
type Advisor interface {
	Compose(ctx context.Context, sh *shipment.Shipment) (domadv.Advisory, error)
}

// EvidenceSearcher answers free-form evidence queries.
type EvidenceSearcher interface {
	Retrieve(ctx context.Context, query string, k int) ([]evidence.Document, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the advisory API.
type Server struct {
	advisories    Advisor
	evidence      EvidenceSearcher
	card          ratecard.Card
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	advisories Advisor,
	evidence EvidenceSearcher,
	card ratecard.Card,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		advisories: advisories,
		evidence:   evidence,
		card:       card,
		health:     health,
		logger:     logger,
	}
	// Ordered: the field handler renders invalid input with detail before
	// the generic sentinel catches it.
	s.errorHandlers = []errorHandler{
		fieldErrorHandler,
		sentinelHandler(domain.ErrNoCandidates, http.StatusBadRequest, ErrorCodeNoCandidates),
		sentinelHandler(domain.ErrUnknownCarrier, http.StatusBadRequest, ErrorCodeUnknownCarrier),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusServiceUnavailable, ErrorCodeModelUnavailable),
		sentinelHandler(domain.ErrRateCardUnavailable, http.StatusServiceUnavailable, ErrorCodeRateCardUnavailable),
		sentinelHandler(domain.ErrRetrievalTimeout, http.StatusGatewayTimeout, ErrorCodeRetrievalTimeout),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/advisories", s.CreateAdvisory)
		r.Post("/evidence/search", s.SearchEvidence)
		r.Get("/ratecard", s.GetRateCard)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// CreateAdvisory handles POST /api/v1/advisories.
func (s *Server) CreateAdvisory(w http.ResponseWriter, r *http.Request) {
	var req AdvisoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sh, err := shipment.New(
		req.ItemDescription,
		req.DeclaredValue,
		req.WeightKG,
		req.OriginRegion,
		req.DestinationRegion,
		req.CandidateCarriers,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	adv, err := s.advisories.Compose(ctx, &sh)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, advisoryToDTO(&adv))
}

// SearchEvidence handles POST /api/v1/evidence/search.
func (s *Server) SearchEvidence(w http.ResponseWriter, r *http.Request) {
	var req EvidenceSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	k := 0
	if req.TopK != nil {
		k = *req.TopK
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	docs, err := s.evidence.Retrieve(ctx, req.Query, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i := range docs {
		items[i] = documentToDTO(&docs[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, EvidenceSearchResponse{
		Items: items,
		Total: len(items),
	})
}

// GetRateCard handles GET /api/v1/ratecard. It serves the card this process
// was started with; pushing a new card takes effect on restart.
func (s *Server) GetRateCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RateCardResponse{
		Version:  s.card.Version(),
		Currency: s.card.Currency(),
		Carriers: s.card.Specs(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:           string(report.Status),
		Checks:           checks,
		ModelID:          report.Info.ModelID,
		ModelFingerprint: report.Info.ModelFingerprint,
		RateCardVersion:  report.Info.RateCardVersion,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrNoCandidates,
		domain.ErrUnknownCarrier,
		domain.ErrVectorDimMismatch,
		domain.ErrNotFound,
		domain.ErrModelUnavailable,
		domain.ErrRateCardUnavailable,
		domain.ErrRetrievalTimeout,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// fieldErrorHandler renders invalid-input errors with the offending field.
func fieldErrorHandler(w http.ResponseWriter, err error, _ string) bool {
	var fe *domain.FieldError
	if !errors.As(err, &fe) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
		fmt.Sprintf("%s %s", fe.Field, fe.Reason))
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
