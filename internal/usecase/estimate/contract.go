package estimate

import (
	domest "github.com/taxtaxi/tariffd/internal/domain/estimate"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
	"github.com/taxtaxi/tariffd/internal/feature"
)

// Encoder builds the feature vector for one shipment and candidate carrier.
type Encoder interface {
	Encode(s *shipment.Shipment, carrier shipment.Carrier) (feature.Vector, error)
}

// Predictor runs tariff inference on a feature vector.
type Predictor interface {
	Predict(vec feature.Vector) (domest.Estimate, error)
}
