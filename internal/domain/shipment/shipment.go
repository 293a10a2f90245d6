package shipment

import (
	"math"
	"strings"

	"github.com/taxtaxi/tariffd/internal/domain"
)

// Shipment field limits.
const (
	// MaxDescriptionLength is the maximum allowed item description length.
	MaxDescriptionLength = 2048
	MaxRegionLength      = 16
	MaxCarriers          = 16
)

// Carrier is a candidate carrier code. The canonical lowercase form is used
// for rate-card lookups and deterministic ordering; the original spelling is
// echoed back in the advisory.
type Carrier struct {
	spelling string
	code     string
}

// Spelling returns the carrier code as the caller wrote it.
func (c Carrier) Spelling() string { return c.spelling }

// Code returns the canonical lowercase carrier code.
func (c Carrier) Code() string { return c.code }

// Shipment is a validated, immutable shipment description.
type Shipment struct {
	description   string
	declaredValue float64
	weightKG      float64
	origin        string
	destination   string
	carriers      []Carrier
}

// New validates and normalizes a shipment request.
// Carriers are deduplicated case-insensitively, first spelling wins.
func New(
	description string,
	declaredValue, weightKG float64,
	origin, destination string,
	carriers []string,
) (Shipment, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Shipment{}, domain.NewFieldError("item_description", "is required")
	}
	if len(description) > MaxDescriptionLength {
		return Shipment{}, domain.NewFieldError("item_description", "is too long")
	}
	if declaredValue < 0 || !isFinite(declaredValue) {
		return Shipment{}, domain.NewFieldError("declared_value", "must be a non-negative finite number")
	}
	if weightKG < 0 || !isFinite(weightKG) {
		return Shipment{}, domain.NewFieldError("weight_kg", "must be a non-negative finite number")
	}

	origin = strings.TrimSpace(origin)
	if origin == "" || len(origin) > MaxRegionLength {
		return Shipment{}, domain.NewFieldError("origin_region", "must be a region code")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" || len(destination) > MaxRegionLength {
		return Shipment{}, domain.NewFieldError("destination_region", "must be a region code")
	}

	if len(carriers) == 0 {
		return Shipment{}, domain.ErrNoCandidates
	}
	if len(carriers) > MaxCarriers {
		return Shipment{}, domain.NewFieldError("candidate_carriers", "has too many entries")
	}

	seen := make(map[string]struct{}, len(carriers))
	normalized := make([]Carrier, 0, len(carriers))
	for _, raw := range carriers {
		spelling := strings.TrimSpace(raw)
		if spelling == "" {
			return Shipment{}, domain.NewFieldError("candidate_carriers", "contains a blank code")
		}
		code := strings.ToLower(spelling)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, Carrier{spelling: spelling, code: code})
	}

	return Shipment{
		description:   description,
		declaredValue: declaredValue,
		weightKG:      weightKG,
		origin:        origin,
		destination:   destination,
		carriers:      normalized,
	}, nil
}

// Reconstruct creates a Shipment without validation (trusted hydration).
func Reconstruct(
	description string,
	declaredValue, weightKG float64,
	origin, destination string,
	carriers []Carrier,
) Shipment {
	return Shipment{
		description:   description,
		declaredValue: declaredValue,
		weightKG:      weightKG,
		origin:        origin,
		destination:   destination,
		carriers:      carriers,
	}
}

// ReconstructCarrier creates a Carrier without validation (trusted hydration).
func ReconstructCarrier(spelling, code string) Carrier {
	return Carrier{spelling: spelling, code: code}
}

// Description returns the item description.
func (s *Shipment) Description() string { return s.description }

// DeclaredValue returns the declared customs value.
func (s *Shipment) DeclaredValue() float64 { return s.declaredValue }

// WeightKG returns the shipment weight in kilograms.
func (s *Shipment) WeightKG() float64 { return s.weightKG }

// Origin returns the origin region code.
func (s *Shipment) Origin() string { return s.origin }

// Destination returns the destination region code.
func (s *Shipment) Destination() string { return s.destination }

// Carriers returns the deduplicated candidate carriers in submission order.
func (s *Shipment) Carriers() []Carrier { return s.carriers }

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
