package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/internal/rag/embedding"
	"github.com/akolanti/kbbot/internal/rag/vectorDB"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"github.com/google/uuid"
)

// chunkNamespace seeds content-derived (UUIDv5) chunk ids.
var chunkNamespace = uuid.MustParse("9f3c2b4e-5d1a-4c7e-8b2f-6a0d3e1f7c55")

type WriteReport struct {
	Collection string `json:"collection"`
	Written    int    `json:"written"`
	Batches    int    `json:"batches"`
	Total      int    `json:"total"`
}

func (r WriteReport) String() string {
	return fmt.Sprintf("Added %d documents", r.Total)
}

type Writer struct {
	store      vectorDB.DataProcessor
	embedder   embedding.Embedder
	collection string
	idStrategy string
	batchSize  int
	logger     *logger_i.Logger
}

func NewWriter(store vectorDB.DataProcessor, embedder embedding.Embedder, collection string, idStrategy string) *Writer {
	if collection == "" {
		collection = config.DefaultCollectionName
	}
	if idStrategy == "" {
		idStrategy = config.IdStrategyPositional
	}
	return &Writer{
		store:      store,
		embedder:   embedder,
		collection: collection,
		idStrategy: idStrategy,
		batchSize:  config.UpsertBatchSize,
		logger:     logger_i.NewLogger("vector_writer"),
	}
}

// WithIdStrategy returns a copy of w that assigns ids with strategy.
func (w *Writer) WithIdStrategy(strategy string) *Writer {
	cp := *w
	cp.idStrategy = strategy
	return &cp
}

// Write embeds and upserts chunks in batches. A failing batch aborts the run;
// batches written before it stay in the collection.
func (w *Writer) Write(ctx context.Context, chunks []commonModels.Chunk) (WriteReport, error) {
	log := w.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "collection", w.collection)
	report := WriteReport{Collection: w.collection}

	_, err := w.store.EnsureCollection(ctx, commonModels.CollectionSpec{
		Name:           w.collection,
		Dimension:      w.embedder.Dimension(),
		EmbeddingModel: w.embedder.ModelName(),
	})
	if err != nil {
		return report, fmt.Errorf("preparing collection: %w", err)
	}

	ids, err := assignIds(chunks, w.idStrategy)
	if err != nil {
		return report, err
	}

	for i := 0; i < len(chunks); i += w.batchSize {
		end := min(i+w.batchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			if strings.TrimSpace(c.Text) == "" {
				return report, fmt.Errorf("chunk %d: %w", i+j, ErrEmptyChunk)
			}
			texts[j] = c.Text
		}

		log.Debug("embedding batch", "from", i, "to", end)
		vectors, err := w.embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return report, fmt.Errorf("embedding batch %d: %w", report.Batches, err)
		}
		if len(vectors) != len(batch) {
			return report, fmt.Errorf("embedding batch %d: got %d vectors for %d chunks: %w", report.Batches, len(vectors), len(batch), ErrVectorCountMismatch)
		}

		entries := make([]commonModels.CollectionEntry, len(batch))
		for j, c := range batch {
			entries[j] = commonModels.CollectionEntry{
				Id:        ids[i+j],
				Text:      c.Text,
				Metadata:  c.Metadata,
				Embedding: vectors[j],
			}
		}
		if err := w.store.Upsert(ctx, w.collection, entries); err != nil {
			return report, fmt.Errorf("upserting batch %d: %w", report.Batches, err)
		}

		report.Batches++
		report.Written += len(batch)
		metrics.CaptureChunksUpserted(len(batch))
	}

	total, err := w.store.Count(ctx, w.collection)
	if err != nil {
		return report, fmt.Errorf("counting collection: %w", err)
	}
	report.Total = total
	log.Info("write complete", "written", report.Written, "batches", report.Batches, "total", report.Total)
	return report, nil
}

// assignIds numbers chunks over the whole run, or derives ids from
// source, per-source ordinal and text.
func assignIds(chunks []commonModels.Chunk, strategy string) ([]string, error) {
	ids := make([]string, len(chunks))
	switch strategy {
	case config.IdStrategyPositional:
		for i := range chunks {
			ids[i] = strconv.Itoa(i)
		}
	case config.IdStrategyContent:
		ordinals := make(map[string]int)
		for i, c := range chunks {
			source, _ := c.Metadata[commonModels.MetaSource].(string)
			n := ordinals[source]
			ordinals[source] = n + 1
			ids[i] = ContentId(source, n, c.Text)
		}
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
	return ids, nil
}

func ContentId(source string, index int, text string) string {
	key := source + "\x00" + strconv.Itoa(index) + "\x00" + text
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}
