package gemini

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/rag/llm"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

func NewGeminiClient(ctx context.Context, apikey string, modelName string, httpClient *http.Client) (llm.Provider, error) {
	if apikey == "" {
		return nil, fmt.Errorf("gemini: %w", llm.ErrMissingCredential)
	}
	if modelName == "" {
		modelName = config.GeminiModelName
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI, HTTPClient: httpClient})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	log := logger_i.NewLogger("llm_gemini")
	log.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, logger: log}, nil
}

func (c *llmClient) ModelName() string {
	return c.modelName
}

func (c *llmClient) Generate(ctx context.Context, prompt string, params llm.SamplingParams) (string, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: genai.Ptr(params.Temperature)},
	)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", llm.ErrEmptyCompletion
	}
	return result.Text(), nil
}
