package tariffd

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// --- New validation ---

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background(), WithModelPath("models/cost_model.json"))
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
	if !strings.Contains(err.Error(), "WithRedis") {
		t.Errorf("err = %v, want hint naming WithRedis", err)
	}
}

func TestNew_NoModelPath(t *testing.T) {
	_, err := New(context.Background(), WithRedis("localhost:6379", ""))
	if err == nil {
		t.Fatal("expected error when no model path provided")
	}
	if !strings.Contains(err.Error(), "WithModelPath") {
		t.Errorf("err = %v, want hint naming WithModelPath", err)
	}
}

// --- Options ---

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithRedis("localhost:6379", "secret").apply(cfg)
	if cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addr = %q, want localhost:6379", cfg.addrs[0])
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q, want secret", cfg.password)
	}

	WithModelPath("m.json").apply(cfg)
	if cfg.modelPath != "m.json" {
		t.Errorf("modelPath = %q, want m.json", cfg.modelPath)
	}

	WithRateCardFile("rates.json").apply(cfg)
	if cfg.rateCardPath != "rates.json" {
		t.Errorf("rateCardPath = %q, want rates.json", cfg.rateCardPath)
	}

	WithVectorizer(Vectorizer{Provider: "ollama", Model: "nomic-embed-text", Dimensions: 768}).apply(cfg)
	if cfg.vectorizer.Provider != "ollama" || cfg.vectorizer.Dimensions != 768 {
		t.Errorf("vectorizer = %+v, want ollama/768", cfg.vectorizer)
	}

	cfg2 := defaultClientConfig()
	WithRetrieval(10, 50, 0.4).apply(cfg2)
	if cfg2.topK != 10 || cfg2.maxTopK != 50 || cfg2.minScore != 0.4 {
		t.Errorf("retrieval = (%d, %d, %v), want (10, 50, 0.4)", cfg2.topK, cfg2.maxTopK, cfg2.minScore)
	}

	WithRetrieval(0, 0, 0.2).apply(cfg2)
	if cfg2.topK != 10 || cfg2.maxTopK != 50 {
		t.Errorf("zero k values overwrote (%d, %d), want (10, 50) kept", cfg2.topK, cfg2.maxTopK)
	}

	WithAdvisory(4, 500*time.Millisecond).apply(cfg2)
	if cfg2.maxParallel != 4 || cfg2.retrievalTimeout != 500*time.Millisecond {
		t.Errorf("advisory = (%d, %v), want (4, 500ms)", cfg2.maxParallel, cfg2.retrievalTimeout)
	}

	cfg3 := &clientConfig{}
	logger := slog.Default()
	WithLogger(logger).apply(cfg3)
	if cfg3.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg3)
	if cfg3.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestVectorizer_ToInternal_Defaults(t *testing.T) {
	vec := Vectorizer{}.toInternal()
	if vec.Provider == "" || vec.Model == "" || vec.Dimensions <= 0 {
		t.Errorf("zero vectorizer did not fall back to defaults: %+v", vec)
	}

	vec = Vectorizer{Model: "custom", QueryInstruction: "query: "}.toInternal()
	if vec.Model != "custom" {
		t.Errorf("Model = %q, want custom", vec.Model)
	}
	if vec.QueryInstruction != "query: " {
		t.Errorf("QueryInstruction = %q, want \"query: \"", vec.QueryInstruction)
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{}
	c.Close()
}

// --- Observer ---

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("advise", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("advise", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "tariffd_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("tariffd_sdk_operations_total not found")
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first newObserver: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second newObserver on same registry: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil)
	obs.observe("test.op", time.Now(), errors.New("test error"))
}
