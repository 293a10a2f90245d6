package ratecard

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/taxtaxi/tariffd/internal/domain"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
)

var (
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// surchargeEnv returns the shared CEL environment for surcharge expressions.
// Available variables: declared_value, weight_kg (doubles), origin,
// destination (region code strings). Expressions must evaluate to a
// non-negative number.
func surchargeEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("declared_value", cel.DoubleType),
			cel.Variable("weight_kg", cel.DoubleType),
			cel.Variable("origin", cel.StringType),
			cel.Variable("destination", cel.StringType),
		)
	})
	return celEnv, celEnvErr
}

// Spec is the external representation of one carrier's pricing.
type Spec struct {
	FlatFee   float64 `json:"flat_fee"`
	PerKG     float64 `json:"per_kg"`
	Surcharge string  `json:"surcharge,omitempty"`
}

type rate struct {
	spec    Spec
	program cel.Program
}

// Card is a versioned, immutable carrier rate table. Surcharge expressions
// are compiled once at construction and evaluated per quote.
type Card struct {
	version  int
	currency string
	rates    map[string]rate
}

// New validates specs and compiles surcharge expressions.
// Carrier codes are expected in canonical lowercase form.
func New(version int, currency string, specs map[string]Spec) (Card, error) {
	if version <= 0 {
		return Card{}, fmt.Errorf("rate card version must be positive, got %d", version)
	}
	if currency == "" {
		return Card{}, fmt.Errorf("rate card currency is required")
	}
	if len(specs) == 0 {
		return Card{}, fmt.Errorf("rate card has no carriers")
	}

	rates := make(map[string]rate, len(specs))
	for code, spec := range specs {
		if code == "" {
			return Card{}, fmt.Errorf("rate card contains a blank carrier code")
		}
		if spec.FlatFee < 0 || math.IsNaN(spec.FlatFee) || math.IsInf(spec.FlatFee, 0) {
			return Card{}, fmt.Errorf("carrier %q: flat_fee must be a non-negative finite number", code)
		}
		if spec.PerKG < 0 || math.IsNaN(spec.PerKG) || math.IsInf(spec.PerKG, 0) {
			return Card{}, fmt.Errorf("carrier %q: per_kg must be a non-negative finite number", code)
		}

		r := rate{spec: spec}
		if spec.Surcharge != "" {
			prg, err := compileSurcharge(spec.Surcharge)
			if err != nil {
				return Card{}, fmt.Errorf("carrier %q: %w", code, err)
			}
			r.program = prg
		}
		rates[code] = r
	}

	return Card{version: version, currency: currency, rates: rates}, nil
}

func compileSurcharge(expr string) (cel.Program, error) {
	env, err := surchargeEnv()
	if err != nil {
		return nil, fmt.Errorf("surcharge env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile surcharge: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("surcharge program: %w", err)
	}
	return prg, nil
}

// Version returns the rate card version.
func (c *Card) Version() int { return c.version }

// Currency returns the fee currency.
func (c *Card) Currency() string { return c.currency }

// Carriers returns the known carrier codes in lexicographic order.
func (c *Card) Carriers() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Specs returns a copy of the carrier pricing specs keyed by carrier code.
func (c *Card) Specs() map[string]Spec {
	specs := make(map[string]Spec, len(c.rates))
	for code, r := range c.rates {
		specs[code] = r.spec
	}
	return specs
}

// Fee computes the carrier fee for a shipment:
// flat_fee + per_kg x weight + surcharge(shipment).
// Returns ErrUnknownCarrier when the carrier has no rate entry.
func (c *Card) Fee(carrier shipment.Carrier, s *shipment.Shipment) (float64, error) {
	r, ok := c.rates[carrier.Code()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownCarrier, carrier.Code())
	}

	fee := r.spec.FlatFee + r.spec.PerKG*s.WeightKG()
	if r.program == nil {
		return fee, nil
	}

	out, _, err := r.program.Eval(map[string]any{
		"declared_value": s.DeclaredValue(),
		"weight_kg":      s.WeightKG(),
		"origin":         s.Origin(),
		"destination":    s.Destination(),
	})
	if err != nil {
		return 0, fmt.Errorf("carrier %q: eval surcharge: %w", carrier.Code(), err)
	}

	var surcharge float64
	switch v := out.Value().(type) {
	case float64:
		surcharge = v
	case int64:
		surcharge = float64(v)
	default:
		return 0, fmt.Errorf("carrier %q: surcharge must return a number, got %T", carrier.Code(), out.Value())
	}
	if surcharge < 0 || math.IsNaN(surcharge) || math.IsInf(surcharge, 0) {
		return 0, fmt.Errorf("carrier %q: surcharge evaluated to %f", carrier.Code(), surcharge)
	}
	return fee + surcharge, nil
}
