package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/rag/embedding"
	"github.com/akolanti/kbbot/internal/rag/vectorDB"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

const searchSeparator = "\n\nNEW DOCUMENT\n\n"

type Retriever struct {
	store      vectorDB.DataProcessor
	embedder   embedding.Embedder
	collection string
	logger     *logger_i.Logger
}

func NewRetriever(store vectorDB.DataProcessor, embedder embedding.Embedder, collection string) *Retriever {
	if collection == "" {
		collection = config.DefaultCollectionName
	}
	return &Retriever{
		store:      store,
		embedder:   embedder,
		collection: collection,
		logger:     logger_i.NewLogger("retriever"),
	}
}

func (r *Retriever) Collection() string {
	return r.collection
}

// Retrieve embeds query with the collection's embedder and returns the k
// nearest entries. A missing or empty collection is an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (commonModels.QueryResult, error) {
	vector, err := r.Embed(ctx, query)
	if err != nil {
		return commonModels.QueryResult{}, err
	}
	return r.Nearest(ctx, vector, k)
}

func (r *Retriever) Embed(ctx context.Context, query string) ([]float32, error) {
	vector, err := r.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

func (r *Retriever) Nearest(ctx context.Context, vector []float32, k int) (commonModels.QueryResult, error) {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "collection", r.collection)

	spec, err := r.store.GetCollection(ctx, r.collection)
	if errors.Is(err, vectorDB.ErrCollectionNotFound) {
		log.Warn("collection does not exist yet")
		return commonModels.QueryResult{}, nil
	}
	if err != nil {
		return commonModels.QueryResult{}, err
	}
	if err := vectorDB.CheckModel(spec, r.embedder.ModelName(), r.embedder.Dimension()); err != nil {
		return commonModels.QueryResult{}, err
	}

	result, err := r.store.Query(ctx, r.collection, vector, k)
	if err != nil {
		return commonModels.QueryResult{}, fmt.Errorf("querying %s: %w", r.collection, err)
	}
	log.Debug("retrieved", "matches", len(result.Matches))
	return result, nil
}

// Summaries renders retrieved texts for the SOURCES block of the prompt.
func Summaries(result commonModels.QueryResult) string {
	if !result.Found() {
		return config.NotFoundResponse
	}
	return strings.Join(result.Texts(), "\n\n")
}

// RenderSearch renders raw matches for clients that skip the language model.
func RenderSearch(result commonModels.QueryResult) string {
	if !result.Found() {
		return config.NotFoundResponse
	}
	return strings.Join(result.Texts(), searchSeparator)
}

// Sources lists distinct source locations of the matches, nearest first.
func Sources(result commonModels.QueryResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range result.Matches {
		source, _ := m.Entry.Metadata[commonModels.MetaSource].(string)
		if source == "" {
			continue
		}
		if page, ok := m.Entry.Metadata[commonModels.MetaPage]; ok {
			source = fmt.Sprintf("%s (page %v)", source, page)
		}
		if !seen[source] {
			seen[source] = true
			out = append(out, source)
		}
	}
	return out
}
