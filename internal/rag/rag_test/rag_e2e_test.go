package rag_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/rag"
	"github.com/akolanti/kbbot/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/kbbot/internal/rag/ingest"
	"github.com/akolanti/kbbot/internal/rag/vectorDB/sqliteDB"
)

const openDoorSentence = "The open door policy allows any employee to speak with any manager directly."

type harness struct {
	pipeline *ingest.Pipeline
	store    *sqliteDB.Store
	llm      *MockLLM
	service  rag.Service
}

func newHarness(t *testing.T, withCache bool) harness {
	t.Helper()
	store, err := sqliteDB.NewStore(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := hashEmbedding.NewHashEmbedder(config.HashingEmbeddingDimension)
	writer := ingest.NewWriter(store, embedder, config.DefaultCollectionName, config.IdStrategyPositional)
	pipeline, err := ingest.NewPipeline(ingest.NewLoader(), writer, config.DefaultChunkSize, config.DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	var cache *rag.AnswerCache
	if withCache {
		cache = rag.NewAnswerCache(store, embedder, config.DefaultCollectionName)
	}
	mLLM := &MockLLM{}
	retriever := rag.NewRetriever(store, embedder, config.DefaultCollectionName)
	return harness{
		pipeline: pipeline,
		store:    store,
		llm:      mLLM,
		service:  rag.NewService(retriever, mLLM, pipeline, cache, config.DefaultTopK),
	}
}

func writeKB(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), config.DefaultDataDir)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestEndToEnd_OpenDoorPolicy(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	dir := writeKB(t, map[string]string{"policy.md": openDoorSentence})

	report, err := h.pipeline.Run(ctx, dir)
	if err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}
	if report.Write.String() != "Added 1 documents" {
		t.Fatalf("ingestion reported %q", report.Write.String())
	}

	question := "What is the open door policy?"
	result, err := h.service.Search(ctx, question, config.DefaultTopK)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !result.Found() || result.Matches[0].Entry.Text != openDoorSentence {
		t.Fatalf("top result got %v", result.Texts())
	}

	if _, err := h.service.Answer(ctx, question, nil); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if len(h.llm.Prompts) != 1 {
		t.Fatalf("expected one llm call, got %d", len(h.llm.Prompts))
	}
	prompt := h.llm.Prompts[0]
	if !strings.Contains(prompt, question) {
		t.Error("prompt does not contain the question")
	}
	sources := prompt[strings.Index(prompt, "SOURCES:\n"):strings.LastIndex(prompt, "=========")]
	if !strings.Contains(sources, openDoorSentence) {
		t.Errorf("sentence not inside the SOURCES block:\n%s", prompt)
	}
}

func TestEndToEnd_UniquePhraseIsRetrieved(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	dir := writeKB(t, map[string]string{
		"accounting.md":   "Invoices are sent to accounting on the first business day of the month.",
		"architecture.md": "Swimlanes isolate failures so one service cannot take down another.",
		"managers.md":     "Managers of one set their own direction and follow through without supervision.",
		"policy.md":       openDoorSentence,
	})
	if _, err := h.pipeline.Run(ctx, dir); err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}

	result, err := h.service.Search(ctx, "Swimlanes isolate failures", config.DefaultTopK)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	found := false
	for _, text := range result.Texts() {
		if strings.Contains(text, "Swimlanes isolate failures") {
			found = true
		}
	}
	if !found {
		t.Errorf("unique phrase not in top %d: %v", config.DefaultTopK, result.Texts())
	}
}

func TestEndToEnd_EmptyStoreReturnsSentinel(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	result, err := h.service.Search(ctx, "anything at all", config.DefaultTopK)
	if err != nil {
		t.Fatalf("Search on an empty store should not fail: %v", err)
	}
	if rag.RenderSearch(result) != config.NotFoundResponse {
		t.Errorf("got %q", rag.RenderSearch(result))
	}

	// collection exists but holds nothing
	if _, err := h.pipeline.Run(ctx, writeKB(t, map[string]string{"blank.md": "   \n\n  "})); err != nil {
		t.Fatalf("ingesting a blank file failed: %v", err)
	}
	result, err = h.service.Search(ctx, "anything at all", config.DefaultTopK)
	if err != nil || result.Found() {
		t.Errorf("expected empty result, got %v, %v", result.Texts(), err)
	}
}

func TestEndToEnd_AnswerCache(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	if _, err := h.pipeline.Run(ctx, writeKB(t, map[string]string{"policy.md": openDoorSentence})); err != nil {
		t.Fatalf("ingestion failed: %v", err)
	}

	first, err := h.service.Answer(ctx, "What is the open door policy?", nil)
	if err != nil {
		t.Fatalf("first Answer failed: %v", err)
	}
	second, err := h.service.Answer(ctx, "What is the open door policy?", nil)
	if err != nil {
		t.Fatalf("second Answer failed: %v", err)
	}

	if first != second {
		t.Errorf("cached answer differs: %q vs %q", first, second)
	}
	if len(h.llm.Prompts) != 1 {
		t.Errorf("second identical question should be served from cache, llm calls: %d", len(h.llm.Prompts))
	}

	n, err := h.store.Count(ctx, config.DefaultCollectionName+config.AnswerCacheSuffix)
	if err != nil || n != 1 {
		t.Errorf("answer collection size got %d, %v", n, err)
	}
}
