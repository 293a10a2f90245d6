package tariffd

import (
	"context"

	domadv "github.com/taxtaxi/tariffd/internal/domain/advisory"
	"github.com/taxtaxi/tariffd/internal/domain/evidence"
	"github.com/taxtaxi/tariffd/internal/domain/shipment"
	healthuc "github.com/taxtaxi/tariffd/internal/usecase/health"
)

// --- advisorUseCase mock ---

type mockAdvisorUC struct {
	composeFn func(ctx context.Context, sh *shipment.Shipment) (domadv.Advisory, error)
}

func (m *mockAdvisorUC) Compose(ctx context.Context, sh *shipment.Shipment) (domadv.Advisory, error) {
	return m.composeFn(ctx, sh)
}

// --- retrieverUseCase mock ---

type mockRetrieverUC struct {
	retrieveFn func(ctx context.Context, query string, k int) ([]evidence.Document, error)
}

func (m *mockRetrieverUC) Retrieve(ctx context.Context, query string, k int) ([]evidence.Document, error) {
	return m.retrieveFn(ctx, query, k)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

// --- embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// mockBatchEmbedder adds native batch support on top of mockEmbedder.
type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// --- helpers ---

func testClient(advisor advisorUseCase, retriever retrieverUseCase, health healthUseCase) *Client {
	return &Client{
		advisor:   advisor,
		retriever: retriever,
		healthSvc: health,
	}
}
