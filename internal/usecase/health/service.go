package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Info carries the startup facts echoed in every health report: which
// cost model and rate card this process serves.
type Info struct {
	ModelID          string
	ModelFingerprint string
	RateCardVersion  int
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Info   Info
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	info      Info
}

// New creates a Service. embedding can be nil.
func New(db DBPinger, embedding EmbeddingChecker, info Info) *Service {
	return &Service{db: db, embedding: embedding, info: info}
}

// Check runs health checks against all components. A database or embedding
// failure degrades the service (advisories still work without evidence)
// rather than failing it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Info: s.info}
}
