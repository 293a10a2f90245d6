package model

import (
	"fmt"

	"github.com/taxtaxi/tariffd/internal/domain"
	"github.com/taxtaxi/tariffd/internal/domain/estimate"
	"github.com/taxtaxi/tariffd/internal/feature"
)

// Predictor runs inference over a loaded network. It holds no mutable
// state and is safe for concurrent use.
type Predictor struct {
	net *network
	mae float64
}

// Predict maps an encoded feature vector to a cost estimate. The
// confidence interval is the point prediction plus/minus the model's
// validation MAE, floored at zero.
func (p *Predictor) Predict(vec feature.Vector) (estimate.Estimate, error) {
	if p == nil || p.net == nil {
		return estimate.Estimate{}, domain.ErrModelUnavailable
	}
	if len(vec) != p.net.inDim {
		return estimate.Estimate{}, fmt.Errorf("%w: got %d features, model expects %d",
			domain.ErrVectorDimMismatch, len(vec), p.net.inDim)
	}

	point := p.net.forward(vec)
	if point < 0 {
		point = 0
	}

	low := point - p.mae
	if low < 0 {
		low = 0
	}
	return estimate.New(point, low, point+p.mae)
}
