package vectorDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/kbbot/internal/domain/commonModels"
)

var (
	ErrCollectionNotFound     = errors.New("collection not found")
	ErrEmbeddingModelMismatch = errors.New("embedding model does not match the collection")
	ErrDimensionMismatch      = errors.New("vector dimension does not match the collection")
)

type DataProcessor interface {
	// EnsureCollection returns the stored spec, creating the collection first
	// when it does not exist. An existing collection built with another
	// embedding model yields ErrEmbeddingModelMismatch.
	EnsureCollection(ctx context.Context, spec commonModels.CollectionSpec) (commonModels.CollectionSpec, error)
	// GetCollection returns ErrCollectionNotFound for an unknown name.
	GetCollection(ctx context.Context, name string) (commonModels.CollectionSpec, error)
	Upsert(ctx context.Context, collection string, entries []commonModels.CollectionEntry) error
	// Query returns at most k entries, nearest first.
	Query(ctx context.Context, collection string, vector []float32, k int) (commonModels.QueryResult, error)
	Count(ctx context.Context, collection string) (int, error)
	Close() error
}

// CheckModel compares the embedder identity recorded on a collection with
// the one about to be used against it.
func CheckModel(spec commonModels.CollectionSpec, model string, dimension int) error {
	if spec.EmbeddingModel != "" && spec.EmbeddingModel != model {
		return fmt.Errorf("collection %q uses %q, embedder is %q: %w", spec.Name, spec.EmbeddingModel, model, ErrEmbeddingModelMismatch)
	}
	if spec.Dimension > 0 && dimension > 0 && spec.Dimension != dimension {
		return fmt.Errorf("collection %q has dimension %d, embedder has %d: %w", spec.Name, spec.Dimension, dimension, ErrDimensionMismatch)
	}
	return nil
}
