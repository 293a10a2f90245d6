package feature

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/taxtaxi/tariffd/internal/domain"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
)

// Feature kinds.
const (
	KindNumeric = "numeric"
	KindLookup  = "lookup"
)

// Feature sources.
const (
	SourceDeclaredValue = "declared_value"
	SourceWeightKG      = "weight_kg"
	SourceOrigin        = "origin_region"
	SourceDestination   = "destination_region"
	SourceCarrier       = "carrier"
	SourceCategory      = "category"
)

// Vector is a fixed-length encoded feature vector.
type Vector []float64

// Spec declares one slot of the feature vector. Numeric features scale a
// request field by training-time statistics; lookup features map a code
// through a static table, falling back to the reserved unknown value.
type Spec struct {
	Name    string             `json:"name"`
	Kind    string             `json:"kind"`
	Source  string             `json:"source"`
	Mean    float64            `json:"mean,omitempty"`
	Scale   float64            `json:"scale,omitempty"`
	Values  map[string]float64 `json:"values,omitempty"`
	Unknown float64            `json:"unknown,omitempty"`
}

// Encoder turns shipments into feature vectors. Built once at startup from
// the model artifact; read-only afterwards.
type Encoder struct {
	specs    []Spec
	keywords map[string]string
}

// NewEncoder validates feature specs and the category keyword table.
func NewEncoder(specs []Spec, keywords map[string]string) (*Encoder, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one feature is required")
	}

	names := make(map[string]struct{}, len(specs))
	normalized := make([]Spec, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("feature [%d]: name is required", i)
		}
		if _, dup := names[spec.Name]; dup {
			return nil, fmt.Errorf("feature %q: duplicate name", spec.Name)
		}
		names[spec.Name] = struct{}{}

		for field, v := range map[string]float64{"mean": spec.Mean, "scale": spec.Scale, "unknown": spec.Unknown} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("feature %q: %s is not finite", spec.Name, field)
			}
		}
		if spec.Scale < 0 {
			return nil, fmt.Errorf("feature %q: scale must not be negative", spec.Name)
		}

		switch spec.Kind {
		case KindNumeric:
			if spec.Source != SourceDeclaredValue && spec.Source != SourceWeightKG {
				return nil, fmt.Errorf("feature %q: numeric source %q is not a request field", spec.Name, spec.Source)
			}
			if spec.Scale == 0 {
				return nil, fmt.Errorf("feature %q: numeric features require a positive scale", spec.Name)
			}
		case KindLookup:
			switch spec.Source {
			case SourceOrigin, SourceDestination, SourceCarrier, SourceCategory:
			default:
				return nil, fmt.Errorf("feature %q: lookup source %q is not supported", spec.Name, spec.Source)
			}
			if len(spec.Values) == 0 {
				return nil, fmt.Errorf("feature %q: lookup requires a values table", spec.Name)
			}
			values := make(map[string]float64, len(spec.Values))
			for code, v := range spec.Values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, fmt.Errorf("feature %q: value for %q is not finite", spec.Name, code)
				}
				values[strings.ToLower(code)] = v
			}
			spec.Values = values
		default:
			return nil, fmt.Errorf("feature %q: unknown kind %q", spec.Name, spec.Kind)
		}
		normalized[i] = spec
	}

	lowered := make(map[string]string, len(keywords))
	for token, class := range keywords {
		if class == "" {
			return nil, fmt.Errorf("keyword %q: empty category class", token)
		}
		lowered[strings.ToLower(token)] = class
	}

	return &Encoder{specs: normalized, keywords: lowered}, nil
}

// Dimensions returns the fixed feature vector length.
func (e *Encoder) Dimensions() int { return len(e.specs) }

// FeatureNames returns the slot names in vector order.
func (e *Encoder) FeatureNames() []string {
	names := make([]string, len(e.specs))
	for i, spec := range e.specs {
		names[i] = spec.Name
	}
	return names
}

// Categorize maps an item description to its tariff-class code via the
// keyword table. The first matching token wins; "" means no match.
func (e *Encoder) Categorize(description string) string {
	for _, token := range tokenize(description) {
		if class, ok := e.keywords[token]; ok {
			return class
		}
	}
	return ""
}

// Encode produces the feature vector for one shipment and candidate carrier.
// Unknown origin/destination/carrier/category codes land in the reserved
// unknown bucket. Fails with an invalid-input error for negative or
// non-finite declared value or weight.
func (e *Encoder) Encode(s *shipment.Shipment, carrier shipment.Carrier) (Vector, error) {
	value := s.DeclaredValue()
	weight := s.WeightKG()
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, domain.NewFieldError("declared_value", "must be a non-negative finite number")
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return nil, domain.NewFieldError("weight_kg", "must be a non-negative finite number")
	}

	vec := make(Vector, len(e.specs))
	for i, spec := range e.specs {
		switch spec.Kind {
		case KindNumeric:
			raw := value
			if spec.Source == SourceWeightKG {
				raw = weight
			}
			vec[i] = (raw - spec.Mean) / spec.Scale
		case KindLookup:
			code := e.lookupCode(s, carrier, spec.Source)
			v, ok := spec.Values[code]
			if !ok {
				v = spec.Unknown
			}
			if spec.Scale > 0 {
				v = (v - spec.Mean) / spec.Scale
			}
			vec[i] = v
		}
	}
	return vec, nil
}

func (e *Encoder) lookupCode(s *shipment.Shipment, carrier shipment.Carrier, source string) string {
	switch source {
	case SourceOrigin:
		return strings.ToLower(s.Origin())
	case SourceDestination:
		return strings.ToLower(s.Destination())
	case SourceCarrier:
		return carrier.Code()
	case SourceCategory:
		return strings.ToLower(e.Categorize(s.Description()))
	default:
		return ""
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
