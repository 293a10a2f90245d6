package advisory

import (
	"context"

	domadv "github.com/taxtaxi/tariffd/internal/domain/advisory"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
)

// Estimator prices one (shipment, carrier) pair.
type Estimator interface {
	Quote(ctx context.Context, sh *shipment.Shipment, carrier shipment.Carrier) (domadv.Quote, error)
}

// Retriever fetches supporting evidence for a shipment.
type Retriever interface {
	RetrieveForShipment(ctx context.Context, sh *shipment.Shipment, k int) ([]evidence.Document, error)
}
