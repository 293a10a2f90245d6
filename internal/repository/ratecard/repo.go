package ratecard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/taxtaxi/tariffd/internal/db"
	"github.com/taxtaxi/tariffd/internal/domain"
	domcard "github.com/taxtaxi/tariffd/internal/domain/ratecard"
)

// store is the consumer interface for rate card storage (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// document is the stored JSON form of a rate card.
type document struct {
	Version  int                     `json:"version"`
	Currency string                  `json:"currency"`
	Carriers map[string]domcard.Spec `json:"carriers"`
}

// Repo persists the active carrier rate card as a single JSON value.
type Repo struct {
	store store
}

// New creates a rate card repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Current loads the active rate card from storage.
// A missing or undecodable card maps to domain.ErrRateCardUnavailable.
func (r *Repo) Current(ctx context.Context) (domcard.Card, error) {
	data, err := r.store.Get(ctx, cardKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcard.Card{}, fmt.Errorf("%w: no rate card at %s", domain.ErrRateCardUnavailable, cardKey)
		}
		return domcard.Card{}, fmt.Errorf("ratecard GET %s: %w", cardKey, err)
	}

	return Parse(data)
}

// Put stores the card as the active rate card.
func (r *Repo) Put(ctx context.Context, card domcard.Card) error {
	doc := document{
		Version:  card.Version(),
		Currency: card.Currency(),
		Carriers: card.Specs(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal rate card: %w", err)
	}

	if err := r.store.Set(ctx, cardKey, data); err != nil {
		return fmt.Errorf("ratecard SET %s: %w", cardKey, err)
	}
	return nil
}

// Parse validates and decodes rate card JSON, compiling surcharges.
// All failures wrap domain.ErrRateCardUnavailable.
func Parse(raw []byte) (domcard.Card, error) {
	if err := validateCard(raw); err != nil {
		return domcard.Card{}, fmt.Errorf("%w: %v", domain.ErrRateCardUnavailable, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domcard.Card{}, fmt.Errorf("%w: decode rate card: %v", domain.ErrRateCardUnavailable, err)
	}

	card, err := domcard.New(doc.Version, doc.Currency, doc.Carriers)
	if err != nil {
		return domcard.Card{}, fmt.Errorf("%w: %v", domain.ErrRateCardUnavailable, err)
	}
	return card, nil
}

// Load reads and parses a rate card seed file.
func Load(path string) (domcard.Card, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domcard.Card{}, fmt.Errorf("%w: read rate card %s: %v", domain.ErrRateCardUnavailable, path, err)
	}
	return Parse(raw)
}

// Redis key: tariffd:ratecard:current.
const cardKey = domain.KeyPrefix + "ratecard:current"
