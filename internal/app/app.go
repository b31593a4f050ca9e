// Package app builds the RAG components from Settings. Both commands and the
// MCP server share it so ingestion and queries always agree on the store,
// the collection and the embedder.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/customHttpClient"
	"github.com/akolanti/kbbot/internal/rag"
	"github.com/akolanti/kbbot/internal/rag/embedding"
	"github.com/akolanti/kbbot/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/kbbot/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/kbbot/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/kbbot/internal/rag/ingest"
	"github.com/akolanti/kbbot/internal/rag/llm"
	"github.com/akolanti/kbbot/internal/rag/llm/gemini"
	"github.com/akolanti/kbbot/internal/rag/llm/openaiLLM"
	"github.com/akolanti/kbbot/internal/rag/vectorDB"
	"github.com/akolanti/kbbot/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/kbbot/internal/rag/vectorDB/sqliteDB"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

var ErrUnknownBackend = errors.New("unknown backend")

// Components are the long-lived clients one process owns.
type Components struct {
	Settings config.Settings
	Store    vectorDB.DataProcessor
	Embedder embedding.Embedder
	Pipeline *ingest.Pipeline
	logger   *logger_i.Logger
}

// NewComponents opens the vector store and the embedder. It fails on a
// missing credential before any document is read.
func NewComponents(ctx context.Context, s config.Settings) (*Components, error) {
	httpClient := customHttpClient.NewClient()

	embedder, err := NewEmbedder(ctx, s, httpClient)
	if err != nil {
		return nil, err
	}
	store, err := NewVectorStore(s)
	if err != nil {
		return nil, err
	}

	writer := ingest.NewWriter(store, embedder, s.CollectionName, s.IdStrategy)
	pipeline, err := ingest.NewPipeline(ingest.NewLoader(), writer, s.ChunkSize, s.ChunkOverlap)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	log := logger_i.NewLogger("app")
	log.Info("Components ready", "store", s.VectorStore, "collection", s.CollectionName, "embedder", embedder.ModelName())
	return &Components{Settings: s, Store: store, Embedder: embedder, Pipeline: pipeline, logger: log}, nil
}

// NewRagService adds the completion provider and, when enabled, the answer cache.
func (c *Components) NewRagService(ctx context.Context) (rag.Service, error) {
	provider, err := NewProvider(ctx, c.Settings, customHttpClient.NewClient())
	if err != nil {
		return nil, err
	}
	var cache *rag.AnswerCache
	if c.Settings.SemanticCache {
		cache = rag.NewAnswerCache(c.Store, c.Embedder, c.Settings.CollectionName)
	}
	retriever := rag.NewRetriever(c.Store, c.Embedder, c.Settings.CollectionName)
	c.logger.Info("RAG service ready", "llm", provider.ModelName(), "semanticCache", cache != nil)
	return rag.NewService(retriever, provider, c.Pipeline, cache, c.Settings.TopK), nil
}

func (c *Components) Close() {
	if err := c.Store.Close(); err != nil {
		c.logger.Error("Error closing vector store", "error", err)
	}
}

func NewEmbedder(ctx context.Context, s config.Settings, httpClient *http.Client) (embedding.Embedder, error) {
	switch s.Embedder {
	case config.EmbedderHashing:
		return hashEmbedding.NewHashEmbedder(config.HashingEmbeddingDimension), nil
	case config.EmbedderGoogle:
		return googleEmbedding.NewGoogleEmbedder(ctx, s.GoogleAPIKey, s.EmbeddingModel, config.GoogleEmbeddingDimension, httpClient)
	case config.EmbedderOpenAI:
		return openaiEmbedding.NewOpenAIEmbedder(s.OpenAIAPIKey, s.OpenAIBaseURL, s.EmbeddingModel, config.OpenAIEmbeddingDimension, httpClient)
	default:
		return nil, fmt.Errorf("embedder %q: %w", s.Embedder, ErrUnknownBackend)
	}
}

func NewVectorStore(s config.Settings) (vectorDB.DataProcessor, error) {
	switch s.VectorStore {
	case config.VectorStoreSQLite:
		return sqliteDB.NewStore(s.PersistDir)
	case config.VectorStoreQdrant:
		return qdrantDB.NewStore(s.QdrantHost, s.QdrantPort, s.QdrantAPIKey)
	default:
		return nil, fmt.Errorf("vector store %q: %w", s.VectorStore, ErrUnknownBackend)
	}
}

func NewProvider(ctx context.Context, s config.Settings, httpClient *http.Client) (llm.Provider, error) {
	switch s.LLM {
	case config.LLMGemini:
		return gemini.NewGeminiClient(ctx, s.GoogleAPIKey, s.LLMModel, httpClient)
	case config.LLMOpenAI:
		return openaiLLM.NewOpenAIClient(s.OpenAIAPIKey, s.OpenAIBaseURL, s.LLMModel, httpClient)
	default:
		return nil, fmt.Errorf("llm %q: %w", s.LLM, ErrUnknownBackend)
	}
}
