package advisory

import (
	"math"
	"testing"

	"github.com/taxtaxi/tariffd/internal/domain/estimate"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
)

func testQuote(t *testing.T, carrierCode string, tariff, fee, total float64) Quote {
	t.Helper()
	s, err := shipment.New("item", 100, 1, "US", "BR", []string{carrierCode})
	if err != nil {
		t.Fatalf("shipment.New: %v", err)
	}
	est, err := estimate.New(tariff, tariff-10, tariff+10)
	if err != nil {
		t.Fatalf("estimate.New: %v", err)
	}
	q, err := NewQuote(s.Carriers()[0], est, fee, total)
	if err != nil {
		t.Fatalf("NewQuote: %v", err)
	}
	return q
}

func TestNewQuote_Validation(t *testing.T) {
	s, _ := shipment.New("item", 100, 1, "US", "BR", []string{"dhl"})
	est, _ := estimate.New(96, 84, 108)

	if _, err := NewQuote(shipment.Carrier{}, est, 30, 926); err == nil {
		t.Error("expected error for zero-value carrier")
	}
	if _, err := NewQuote(s.Carriers()[0], est, -1, 926); err == nil {
		t.Error("expected error for negative fee")
	}
	if _, err := NewQuote(s.Carriers()[0], est, 30, math.Inf(1)); err == nil {
		t.Error("expected error for non-finite total")
	}
}

func TestNew_RecommendsFirstQuote(t *testing.T) {
	quotes := []Quote{
		testQuote(t, "dhl", 96, 30, 926),
		testQuote(t, "fedex", 112, 45, 957),
	}
	a, err := New(quotes, nil, "dhl is cheapest", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.RecommendedCarrier().Code() != "dhl" {
		t.Errorf("RecommendedCarrier() = %q", a.RecommendedCarrier().Code())
	}
	if a.TotalLandedCost() != 926 {
		t.Errorf("TotalLandedCost() = %f", a.TotalLandedCost())
	}
	if a.Degraded() {
		t.Error("Degraded() = true")
	}
}

func TestNew_RequiresQuotesAndRationale(t *testing.T) {
	if _, err := New(nil, nil, "text", false); err == nil {
		t.Error("expected error for empty quotes")
	}
	if _, err := New([]Quote{testQuote(t, "dhl", 96, 30, 926)}, nil, "", false); err == nil {
		t.Error("expected error for empty rationale")
	}
}

func TestNew_DegradedWithEmptyDocuments(t *testing.T) {
	a, err := New([]Quote{testQuote(t, "dhl", 96, 30, 926)}, nil, "evidence unavailable", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Degraded() {
		t.Error("Degraded() = false")
	}
	if len(a.SupportingDocuments()) != 0 {
		t.Errorf("expected no documents, got %d", len(a.SupportingDocuments()))
	}
}
