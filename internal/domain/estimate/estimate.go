package estimate

import (
	"fmt"
	"math"
)

// Estimate is a predicted tariff amount with a symmetric confidence band.
type Estimate struct {
	predicted float64
	low       float64
	high      float64
}

// New validates interval ordering: low <= predicted <= high, all finite.
func New(predicted, low, high float64) (Estimate, error) {
	for name, v := range map[string]float64{"predicted": predicted, "low": low, "high": high} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Estimate{}, fmt.Errorf("estimate %s is not finite", name)
		}
	}
	if low > predicted || predicted > high {
		return Estimate{}, fmt.Errorf("estimate interval violates low <= predicted <= high: [%f, %f, %f]", low, predicted, high)
	}
	return Estimate{predicted: predicted, low: low, high: high}, nil
}

// Predicted returns the point prediction.
func (e *Estimate) Predicted() float64 { return e.predicted }

// Low returns the lower bound of the confidence interval.
func (e *Estimate) Low() float64 { return e.low }

// High returns the upper bound of the confidence interval.
func (e *Estimate) High() float64 { return e.high }

// Span returns the confidence interval width.
func (e *Estimate) Span() float64 { return e.high - e.low }
