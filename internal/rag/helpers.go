package rag

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/internal/rag/embedding"
	"github.com/akolanti/kbbot/internal/rag/llm"
	"github.com/akolanti/kbbot/internal/rag/vectorDB"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

// history is stored per chat but not sent to the model
func logHistory(log *logger_i.Logger, history []string) {
	if len(history) > 0 {
		log.Debug("message history not forwarded to the model", "turns", len(history))
	}
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err, "jobId", job.Id)

	job.Error = jobModel.JobError{
		Code:    ErrorCode(err),
		Message: message,
		Retry:   canRetry,
	}
	job.Err = err
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

// ErrorCode maps a pipeline error to the HTTP status reported to clients.
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, embedding.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, vectorDB.ErrEmbeddingModelMismatch), errors.Is(err, vectorDB.ErrDimensionMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrIngestionDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) ([]float32, error) {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.retriever.Embed(ctx, job.JobPayload.Question)
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, err := s.cache.Lookup(ctx, emb)
	if err != nil {
		log.Warn("answer cache lookup failed", "error", err)
		return "", false
	}
	return ans, found
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) (commonModels.QueryResult, error) {
	*job = logOutput(*job, jobModel.VectorDBCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	result, err := s.retriever.Nearest(ctx, emb, s.topK)
	job.JobPayload.Sources = Sources(result)
	return result, err
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, result commonModels.QueryResult) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	prompt := RenderPrompt(job.JobPayload.Question, Summaries(result))
	return s.llmProvider.Generate(ctx, prompt, llm.SamplingParams{Temperature: config.ModelTemperature})
}

// saveToCache skips answers built without sources so a later ingest is not masked.
func (s *service) saveToCache(ctx context.Context, log *logger_i.Logger, question string, emb []float32, answer string, result commonModels.QueryResult) {
	if s.cache == nil || !result.Found() {
		return
	}
	if err := s.cache.Save(ctx, question, emb, answer); err != nil {
		log.Error("Failed to save to cache", "error", err)
	}
}
