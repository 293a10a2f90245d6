package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/gowebpki/jcs"

	"github.com/taxtaxi/tariffd/internal/domain"
	"github.com/taxtaxi/tariffd/internal/feature"
)

// Artifact is the on-disk representation of a trained cost model.
type Artifact struct {
	SchemaVersion int               `json:"schema_version"`
	ModelID       string            `json:"model_id"`
	TrainedAt     string            `json:"trained_at,omitempty"`
	ValidationMAE float64           `json:"validation_mae"`
	Features      []feature.Spec    `json:"features"`
	Keywords      map[string]string `json:"keywords,omitempty"`
	Network       networkSpec       `json:"network"`
}

// Model is a loaded cost model: encoder, network and validation statistics.
// Loaded once at startup and shared read-only by all requests.
type Model struct {
	modelID     string
	trainedAt   string
	fingerprint string
	mae         float64
	encoder     *feature.Encoder
	predictor   *Predictor
}

// Load reads, schema-validates and fingerprints a model artifact.
// Every failure is a startup precondition violation and wraps
// ErrModelUnavailable.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact %s: %v", domain.ErrModelUnavailable, path, err)
	}
	return Parse(raw)
}

// Parse builds a Model from raw artifact bytes.
func Parse(raw []byte) (*Model, error) {
	if err := validateArtifact(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	fingerprint, err := fingerprintArtifact(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprint artifact: %v", domain.ErrModelUnavailable, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %v", domain.ErrModelUnavailable, err)
	}

	if artifact.ValidationMAE < 0 || math.IsNaN(artifact.ValidationMAE) || math.IsInf(artifact.ValidationMAE, 0) {
		return nil, fmt.Errorf("%w: validation_mae must be a non-negative finite number", domain.ErrModelUnavailable)
	}

	encoder, err := feature.NewEncoder(artifact.Features, artifact.Keywords)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	net, err := newNetwork(artifact.Network, encoder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	return &Model{
		modelID:     artifact.ModelID,
		trainedAt:   artifact.TrainedAt,
		fingerprint: fingerprint,
		mae:         artifact.ValidationMAE,
		encoder:     encoder,
		predictor:   &Predictor{net: net, mae: artifact.ValidationMAE},
	}, nil
}

// fingerprintArtifact returns the sha256 of the RFC 8785 canonical artifact
// form, stable across whitespace and key-order differences.
func fingerprintArtifact(raw []byte) (string, error) {
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// ID returns the artifact's model id.
func (m *Model) ID() string { return m.modelID }

// TrainedAt returns the training timestamp string, empty when absent.
func (m *Model) TrainedAt() string { return m.trainedAt }

// Fingerprint returns the canonical artifact fingerprint.
func (m *Model) Fingerprint() string { return m.fingerprint }

// ValidationMAE returns the held-out mean absolute error.
func (m *Model) ValidationMAE() float64 { return m.mae }

// Encoder returns the feature encoder built from the artifact.
func (m *Model) Encoder() *feature.Encoder { return m.encoder }

// Predictor returns the cost predictor backed by the artifact network.
func (m *Model) Predictor() *Predictor { return m.predictor }
