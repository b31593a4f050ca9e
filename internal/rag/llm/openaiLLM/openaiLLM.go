package openaiLLM

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/rag/llm"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	client    openai.Client
	modelName string
	logger    *logger_i.Logger
}

func NewOpenAIClient(apikey string, baseURL string, modelName string, httpClient *http.Client) (llm.Provider, error) {
	if apikey == "" {
		return nil, fmt.Errorf("openai: %w", llm.ErrMissingCredential)
	}
	if modelName == "" {
		modelName = config.OpenAIChatModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apikey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	log := logger_i.NewLogger("llm_openai")
	log.Info("OpenAI client created", "model", modelName)
	return &llmClient{client: openai.NewClient(opts...), modelName: modelName, logger: log}, nil
}

func (c *llmClient) ModelName() string {
	return c.modelName
}

func (c *llmClient) Generate(ctx context.Context, prompt string, params llm.SamplingParams) (string, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.modelName,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(float64(params.Temperature)),
	})
	if err != nil {
		log.Error("OpenAI completion failed", "error", err)
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
