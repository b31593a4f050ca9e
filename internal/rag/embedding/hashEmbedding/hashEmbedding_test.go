package hashEmbedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/akolanti/kbbot/internal/rag/embedding"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.GetEmbedding(ctx, "The open door policy")
	if err != nil {
		t.Fatalf("GetEmbedding failed: %v", err)
	}
	b, _ := e.GetEmbedding(ctx, "The open door policy")
	if len(a) != 64 {
		t.Fatalf("dimension got %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
	if e.ModelName() != "hashing-v1-64" {
		t.Errorf("ModelName got %s", e.ModelName())
	}
}

func TestHashEmbedder_Similarity(t *testing.T) {
	e := NewHashEmbedder(384)
	ctx := context.Background()

	doc, _ := e.GetEmbedding(ctx, "The open door policy allows any employee to speak with any manager directly.")
	query, _ := e.GetEmbedding(ctx, "What is the open door policy?")
	other, _ := e.GetEmbedding(ctx, "Invoices are sent to accounting on the first business day of the month.")

	if cosine(doc, query) <= cosine(other, query) {
		t.Errorf("expected related text to be closer: related=%f unrelated=%f", cosine(doc, query), cosine(other, query))
	}
}

func TestHashEmbedder_EmptyInput(t *testing.T) {
	e := NewHashEmbedder(32)
	_, err := e.BatchEmbedding(context.Background(), []string{"fine", "   "})
	if !errors.Is(err, embedding.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}
