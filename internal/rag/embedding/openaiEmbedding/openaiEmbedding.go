package openaiEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/rag/embedding"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api       openai.Client
	model     string
	dimension int
	logger    *logger_i.Logger
}

func NewOpenAIEmbedder(apikey string, baseURL string, modelName string, dimension int, httpClient *http.Client) (embedding.Embedder, error) {
	if apikey == "" {
		return nil, fmt.Errorf("openai embedder: %w", embedding.ErrMissingCredential)
	}
	if modelName == "" {
		modelName = config.OpenAIEmbeddingModel
	}
	if dimension <= 0 {
		dimension = config.OpenAIEmbeddingDimension
	}

	opts := []option.RequestOption{option.WithAPIKey(apikey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &client{
		api:       openai.NewClient(opts...),
		model:     modelName,
		dimension: dimension,
		logger:    logger_i.NewLogger("openai_embedding"),
	}, nil
}

func (c *client) ModelName() string {
	return fmt.Sprintf("openai/%s@%d", c.model, c.dimension)
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "batch", len(chunks))

	res, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunks},
		Model:      c.model,
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		log.Error("Error getting embeddings from OpenAI", "error", err)
		return nil, err
	}
	if len(res.Data) != len(chunks) {
		return nil, fmt.Errorf("openai embedding: got %d vectors for %d inputs", len(res.Data), len(chunks))
	}

	vectors := make([][]float32, len(chunks))
	for _, d := range res.Data {
		if d.Index < 0 || int(d.Index) >= len(chunks) {
			return nil, fmt.Errorf("openai embedding: index %d out of range", d.Index)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	return vectors, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
