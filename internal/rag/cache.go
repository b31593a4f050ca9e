package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/internal/rag/embedding"
	"github.com/akolanti/kbbot/internal/rag/vectorDB"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"github.com/google/uuid"
)

var answerNamespace = uuid.MustParse("4b1e0c9a-2f6d-4e3b-9a7c-1d5e8f2a6b30")

// AnswerCache stores generated answers keyed by question embedding in a
// sibling collection and returns them for near-identical questions.
type AnswerCache struct {
	store      vectorDB.DataProcessor
	collection string
	model      string
	dimension  int
	cutoff     float32
	logger     *logger_i.Logger
}

func NewAnswerCache(store vectorDB.DataProcessor, embedder embedding.Embedder, baseCollection string) *AnswerCache {
	return &AnswerCache{
		store:      store,
		collection: baseCollection + config.AnswerCacheSuffix,
		model:      embedder.ModelName(),
		dimension:  embedder.Dimension(),
		cutoff:     config.CacheSimilarityCutoff,
		logger:     logger_i.NewLogger("answer_cache"),
	}
}

func (c *AnswerCache) Lookup(ctx context.Context, vector []float32) (string, bool, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := c.store.Query(ctx, c.collection, vector, 1)
	if errors.Is(err, vectorDB.ErrCollectionNotFound) {
		metrics.CaptureCacheLookup(false)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("answer cache lookup: %w", err)
	}
	if !result.Found() {
		metrics.CaptureCacheLookup(false)
		return "", false, nil
	}

	similarity := 1 - result.Matches[0].Distance
	log.Debug("closest cached answer", "similarity", similarity)
	if similarity < c.cutoff {
		metrics.CaptureCacheLookup(false)
		return "", false, nil
	}
	metrics.CaptureCacheLookup(true)
	log.Info("answer cache hit")
	return result.Matches[0].Entry.Text, true, nil
}

func (c *AnswerCache) Save(ctx context.Context, question string, vector []float32, answer string) error {
	_, err := c.store.EnsureCollection(ctx, commonModels.CollectionSpec{
		Name:           c.collection,
		Dimension:      c.dimension,
		EmbeddingModel: c.model,
	})
	if err != nil {
		return fmt.Errorf("answer cache collection: %w", err)
	}

	entry := commonModels.CollectionEntry{
		Id:        uuid.NewSHA1(answerNamespace, []byte(question)).String(),
		Text:      answer,
		Metadata:  map[string]any{"question": question, "cached_at": time.Now().Unix()},
		Embedding: vector,
	}
	if err := c.store.Upsert(ctx, c.collection, []commonModels.CollectionEntry{entry}); err != nil {
		return fmt.Errorf("answer cache save: %w", err)
	}
	return nil
}
