package ratecard

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/taxtaxi/tariffd/internal/db"
	"github.com/taxtaxi/tariffd/internal/domain"
	domcard "github.com/taxtaxi/tariffd/internal/domain/ratecard"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func testCardJSON() []byte {
	return []byte(`{
		"version": 3,
		"currency": "USD",
		"carriers": {
			"dhl":   {"flat_fee": 30},
			"fedex": {"flat_fee": 45},
			"ups":   {"flat_fee": 35, "per_kg": 2.5}
		}
	}`)
}

// --- Current ---

func TestCurrent_HappyPath(t *testing.T) {
	ms := &mockStore{
		getFn: func(_ context.Context, key string) ([]byte, error) {
			if key != "tariffd:ratecard:current" {
				t.Errorf("unexpected key: %s", key)
			}
			return testCardJSON(), nil
		},
	}
	repo := New(ms)

	card, err := repo.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.Version() != 3 {
		t.Errorf("expected version 3, got %d", card.Version())
	}
	if card.Currency() != "USD" {
		t.Errorf("expected USD, got %s", card.Currency())
	}
	carriers := card.Carriers()
	if len(carriers) != 3 || carriers[0] != "dhl" || carriers[2] != "ups" {
		t.Errorf("unexpected carriers: %v", carriers)
	}
}

func TestCurrent_Missing(t *testing.T) {
	repo := New(&mockStore{})

	_, err := repo.Current(context.Background())
	if !errors.Is(err, domain.ErrRateCardUnavailable) {
		t.Fatalf("expected ErrRateCardUnavailable, got %v", err)
	}
}

func TestCurrent_StoreError(t *testing.T) {
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, errors.New("connection lost")
		},
	}
	repo := New(ms)

	_, err := repo.Current(context.Background())
	if err == nil {
		t.Fatal("expected error on GET failure")
	}
	if errors.Is(err, domain.ErrRateCardUnavailable) {
		t.Fatal("transient store errors must not map to ErrRateCardUnavailable")
	}
}

// --- Put ---

func TestPut_RoundTrip(t *testing.T) {
	var stored []byte
	ms := &mockStore{
		setFn: func(_ context.Context, key string, value []byte) error {
			if key != "tariffd:ratecard:current" {
				t.Errorf("unexpected key: %s", key)
			}
			stored = value
			return nil
		},
	}
	repo := New(ms)

	card, err := domcard.New(5, "USD", map[string]domcard.Spec{
		"dhl": {FlatFee: 30, Surcharge: "declared_value * 0.01"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.Put(context.Background(), card); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(stored, &doc); err != nil {
		t.Fatalf("stored payload is not JSON: %v", err)
	}
	if doc["version"].(float64) != 5 {
		t.Errorf("unexpected stored version: %v", doc["version"])
	}

	reparsed, err := Parse(stored)
	if err != nil {
		t.Fatalf("stored payload does not parse back: %v", err)
	}
	if reparsed.Version() != 5 {
		t.Errorf("expected version 5, got %d", reparsed.Version())
	}
}

// --- Parse ---

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"version": 3,`},
		{"missing version", `{"currency": "USD", "carriers": {"dhl": {"flat_fee": 30}}}`},
		{"zero version", `{"version": 0, "currency": "USD", "carriers": {"dhl": {"flat_fee": 30}}}`},
		{"no carriers", `{"version": 1, "currency": "USD", "carriers": {}}`},
		{"negative fee", `{"version": 1, "currency": "USD", "carriers": {"dhl": {"flat_fee": -1}}}`},
		{"bad surcharge", `{"version": 1, "currency": "USD", "carriers": {"dhl": {"flat_fee": 1, "surcharge": "not (("}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if !errors.Is(err, domain.ErrRateCardUnavailable) {
				t.Fatalf("expected ErrRateCardUnavailable, got %v", err)
			}
		})
	}
}

// --- Load ---

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rate_card.json")
	if err := os.WriteFile(path, testCardJSON(), 0o600); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	card, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.Version() != 3 {
		t.Errorf("expected version 3, got %d", card.Version())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, domain.ErrRateCardUnavailable) {
		t.Fatalf("expected ErrRateCardUnavailable, got %v", err)
	}
}
