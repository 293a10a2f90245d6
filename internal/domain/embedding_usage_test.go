package domain

import (
	"context"
	"testing"
)

func TestEmbeddingUsage_RecordsThroughContext(t *testing.T) {
	ctx, usage := NewContextWithUsage(context.Background())

	UsageFromContext(ctx).AddTokens(12)
	UsageFromContext(ctx).AddTokens(5)

	if usage.TotalTokens != 17 {
		t.Errorf("TotalTokens = %d, want 17", usage.TotalTokens)
	}
	if !usage.Used {
		t.Error("Used = false after recording")
	}
}

func TestEmbeddingUsage_CacheHitMarksUsed(t *testing.T) {
	ctx, usage := NewContextWithUsage(context.Background())

	UsageFromContext(ctx).AddTokens(0)

	if usage.TotalTokens != 0 {
		t.Errorf("TotalTokens = %d, want 0", usage.TotalTokens)
	}
	if !usage.Used {
		t.Error("zero-token recording must still mark usage")
	}
}

func TestEmbeddingUsage_NilSafe(t *testing.T) {
	// Unseeded context: recording is a no-op, not a panic.
	UsageFromContext(context.Background()).AddTokens(3)

	if u := UsageFromContext(context.Background()); u != nil {
		t.Errorf("UsageFromContext on unseeded context = %v, want nil", u)
	}
}
