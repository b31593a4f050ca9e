package googleEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/rag/embedding"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"google.golang.org/genai"
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	logger    *logger_i.Logger
}

func NewGoogleEmbedder(ctx context.Context, apikey string, modelName string, dimension int, httpClient *http.Client) (embedding.Embedder, error) {
	if apikey == "" {
		return nil, fmt.Errorf("google embedder: %w", embedding.ErrMissingCredential)
	}
	if modelName == "" {
		modelName = config.GoogleEmbeddingModel
	}
	if dimension <= 0 {
		dimension = config.GoogleEmbeddingDimension
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI, HTTPClient: httpClient})
	if err != nil {
		return nil, fmt.Errorf("creating google embedding client: %w", err)
	}

	log := logger_i.NewLogger("google_embedding")
	log.Info("Google Embedding client created", "model", modelName, "dimension", dimension)
	return &client{
		genAi:     c,
		model:     modelName,
		dimension: int32(dimension),
		logger:    log,
	}, nil
}

func (c *client) ModelName() string {
	return fmt.Sprintf("google/%s@%d", c.model, c.dimension)
}

func (c *client) Dimension() int {
	return int(c.dimension)
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	log.Debug("embedding query", "length", len(query))

	res, err := c.doCall(ctx, genai.Text(query), config.EmbeddingTaskTypeQuery)
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, err
	}
	if len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, fmt.Errorf("google embedding: empty response")
	}
	return res.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "batch", len(chunks))

	res, err := c.doCall(ctx, getContent(chunks), config.EmbeddingTaskTypeDocument)
	if err != nil {
		log.Error("Error getting batch embeddings from Google", "error", err)
		return nil, err
	}

	embeddingResults := make([][]float32, 0, len(res.Embeddings))
	for i, r := range res.Embeddings {
		if r == nil || len(r.Values) == 0 {
			return nil, fmt.Errorf("google embedding: no vector for input %d", i)
		}
		embeddingResults = append(embeddingResults, r.Values)
	}
	return embeddingResults, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: taskType})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}
