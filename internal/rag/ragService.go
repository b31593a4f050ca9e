package rag

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/internal/rag/ingest"
	"github.com/akolanti/kbbot/internal/rag/llm"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

var ErrIngestionDisabled = errors.New("document ingestion is not configured")

// Service is what the worker pool and the MCP tools call. The private
// struct holds the store, embedder and model clients.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, messageHistory []string) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	Answer(ctx context.Context, question string, messageHistory []string) (string, error)
	Search(ctx context.Context, query string, k int) (commonModels.QueryResult, error)
}

type service struct {
	retriever   *Retriever
	llmProvider llm.Provider
	pipeline    *ingest.Pipeline
	cache       *AnswerCache
	topK        int
	logger      *logger_i.Logger
}

// NewService wires the answer path. pipeline and cache may be nil.
func NewService(retriever *Retriever, provider llm.Provider, pipeline *ingest.Pipeline, cache *AnswerCache, topK int) Service {
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	return &service{
		retriever:   retriever,
		llmProvider: provider,
		pipeline:    pipeline,
		cache:       cache,
		topK:        topK,
		logger:      logger_i.NewLogger("rag_service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, messageHistory []string) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, config.ProcessTimeout)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall
	logHistory(inMethodLogger, messageHistory)

	emb, err := s.executeEmbeddingStep(processContext, inMethodLogger, &jobt)
	if err != nil {
		return s.jobError(jobt, err, "EMBEDDING_FAILURE", true)
	}

	if cachedAnswer, found := s.executeCacheCheckStep(processContext, inMethodLogger, &jobt, emb); found {
		return returnOutput(jobt, cachedAnswer)
	}

	result, err := s.executeVectorSearchStep(processContext, inMethodLogger, &jobt, emb)
	if err != nil {
		return s.jobError(jobt, err, "VECTOR_DB_FAILURE", false)
	}

	answer, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, result)
	if err != nil {
		return s.jobError(jobt, err, "LLM_GENERATION_FAILURE", true)
	}

	s.saveToCache(processContext, inMethodLogger, jobt.JobPayload.Question, emb, answer, result)
	return returnOutput(jobt, answer)
}

// Answer runs the same steps as ProcessRequest without a job envelope.
func (s *service) Answer(ctx context.Context, question string, messageHistory []string) (string, error) {
	job := s.ProcessRequest(ctx, jobModel.Job{JobPayload: jobModel.JobPayload{Question: question}}, messageHistory)
	if job.Status == jobModel.JobStatusError {
		return "", job.Err
	}
	return job.JobPayload.Answer, nil
}

func (s *service) Search(ctx context.Context, query string, k int) (commonModels.QueryResult, error) {
	if k <= 0 {
		k = s.topK
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()
	return s.retriever.Retrieve(ctx, query, k)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	if s.pipeline == nil {
		return s.jobError(job, ErrIngestionDisabled, "INGESTION_FAILURE", false)
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()
	return s.pipeline.ProcessDocumentIngestion(ctx, job)
}
