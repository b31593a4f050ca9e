package job

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"github.com/google/uuid"
)

// Service owns the job queue and the stores the handlers and workers share.
type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
		logger:            logger_i.NewLogger("JobService"),
	}
}

func NewQueryJob(traceId string, chatId string, question string) jobModel.Job {
	return jobModel.Job{
		Id:          uuid.NewString(),
		ChatId:      chatId,
		TraceId:     traceId,
		JobType:     jobModel.JobTypeQuery,
		JobPayload:  jobModel.JobPayload{Question: question},
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.UserQueryInit,
	}
}

func NewIngestJob(traceId string, documentName string, documentPath string) jobModel.Job {
	return jobModel.Job{
		Id:          uuid.NewString(),
		TraceId:     traceId,
		JobType:     jobModel.JobTypeIngest,
		JobPayload:  jobModel.JobPayload{IngestFileName: documentName, IngestURL: documentPath},
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
	}
}

// Submit records the job as queued and hands it to the worker pool. The send
// blocks while the buffer is full so callers are throttled, until ctx ends.
func (s *Service) Submit(ctx context.Context, j jobModel.Job) error {
	log := s.logger.With("traceId", j.TraceId, "jobId", j.Id)

	if err := s.JobStore.SaveJob(ctx, j); err != nil {
		return fmt.Errorf("saving queued job: %w", err)
	}

	select {
	case s.JobChannel <- j:
	case <-ctx.Done():
		// never queued, so no worker will move it past QUEUED
		s.JobStore.DeleteJob(context.WithoutCancel(ctx), j.Id)
		return fmt.Errorf("queueing job: %w", ctx.Err())
	}
	metrics.IncrementJobsInQueue()
	log.Info("Queued new job", "type", j.JobType)

	// wake the dispatcher every few requests and for every upload; it only
	// grows the pool while under the configured worker count
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || j.JobType == jobModel.JobTypeIngest {
		select {
		case s.DispatcherChannel <- true:
			metrics.StartDispatcherSignalCount()
		default:
		}
	}
	return nil
}

// StartChat registers a fresh chat id so its turns can be stored.
func (s *Service) StartChat(ctx context.Context, chatId string) error {
	if err := s.MessageStore.InitNewChat(ctx, chatId); err != nil {
		s.logger.Error("Error initiating new chat", "chatId", chatId, "error", err)
		return err
	}
	return nil
}

func (s *Service) GetJob(ctx context.Context, id string) (jobModel.Job, bool) {
	if id == "" {
		return jobModel.Job{}, false
	}
	return s.JobStore.GetJob(ctx, id)
}

func (s *Service) IsKnownChat(ctx context.Context, chatId string) bool {
	return s.MessageStore.ValidateChatId(ctx, chatId)
}
