package embedding

import (
	"context"
	"errors"
)

var ErrEmptyInput = errors.New("embedding input is empty")
var ErrMissingCredential = errors.New("embedding api key is not set")

// Embedder turns text into vectors. The same Embedder (same ModelName) must
// be used at ingestion and query time.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
	ModelName() string
	Dimension() int
}
