package tariffd

import (
	"context"
	"time"
)

// HealthStatus reports component availability plus the model and rate
// card this client serves. Status is "ok", "degraded" or "error"; check
// values are "ok" or "error". A degraded client still produces
// advisories, without evidence retrieval.
type HealthStatus struct {
	Status           string
	Checks           map[string]string
	ModelID          string
	ModelFingerprint string
	RateCardVersion  int
}

// Health checks the database and, when configured, the embedding
// provider. It never returns an error; failures show up as check
// results.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)
	c.obs.observe("health", start, nil)

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	return HealthStatus{
		Status:           string(report.Status),
		Checks:           checks,
		ModelID:          report.Info.ModelID,
		ModelFingerprint: report.Info.ModelFingerprint,
		RateCardVersion:  report.Info.RateCardVersion,
	}
}
