package rag_test

import (
	"context"

	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/rag/llm"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	OnGetCollection func(ctx context.Context, name string) (commonModels.CollectionSpec, error)
	OnQuery         func(ctx context.Context, name string, v []float32, k int) (commonModels.QueryResult, error)
	OnUpsert        func(ctx context.Context, name string, entries []commonModels.CollectionEntry) error
}

func (m *MockVectorDB) EnsureCollection(ctx context.Context, spec commonModels.CollectionSpec) (commonModels.CollectionSpec, error) {
	return spec, nil
}

func (m *MockVectorDB) GetCollection(ctx context.Context, name string) (commonModels.CollectionSpec, error) {
	if m.OnGetCollection != nil {
		return m.OnGetCollection(ctx, name)
	}
	return commonModels.CollectionSpec{Name: name, Dimension: 1, EmbeddingModel: "mock-embedder"}, nil
}

func (m *MockVectorDB) Upsert(ctx context.Context, name string, entries []commonModels.CollectionEntry) error {
	if m.OnUpsert != nil {
		return m.OnUpsert(ctx, name, entries)
	}
	return nil
}

func (m *MockVectorDB) Query(ctx context.Context, name string, v []float32, k int) (commonModels.QueryResult, error) {
	if m.OnQuery != nil {
		return m.OnQuery(ctx, name, v, k)
	}
	return commonModels.QueryResult{Matches: []commonModels.QueryMatch{
		{Entry: commonModels.CollectionEntry{Id: "0", Text: "default context", Metadata: map[string]any{"source": "ORG-KB/a.md"}}},
	}}, nil
}

func (m *MockVectorDB) Count(ctx context.Context, name string) (int, error) {
	return 0, nil
}

func (m *MockVectorDB) Close() error {
	return nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks)
	}
	out := make([][]float32, len(chunks))
	for i := range out {
		out[i] = []float32{0.1}
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) ModelName() string { return "mock-embedder" }
func (m *MockEmbedder) Dimension() int    { return 1 }

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt string, params llm.SamplingParams) (string, error)
	Prompts    []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, params llm.SamplingParams) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt, params)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) ModelName() string { return "mock-llm" }
