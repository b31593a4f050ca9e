package worker

import (
	"context"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

func (p *Pool) executeJob(job jobModel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.JobTimeout)
	defer cancel()
	log := p.logger.With("traceId", job.TraceId, "jobId", job.Id)
	log.Debug("Processing job", "type", job.JobType)

	job.Status = jobModel.JobStatusRunning
	p.saveJobState(ctx, log, job)

	if job.JobType == jobModel.JobTypeIngest {
		job.CurrentStep = jobModel.IngestProcessing
		job = p.ingestDocument(ctx, job)
	} else {
		job.CurrentStep = jobModel.RedisCall
		job = p.processQuery(ctx, log, job)
		if job.Status != jobModel.JobStatusError && job.ChatId != "" {
			if err := p.jobService.MessageStore.TrySaveChat(ctx, job.ChatId, job.JobPayload); err != nil {
				log.Error("Failed to save chat history", "err", err)
			}
		}
	}

	job.EndTime = time.Now()
	if job.Status != jobModel.JobStatusError {
		job.Status = jobModel.JobStatusComplete
		job.CurrentStep = jobModel.Complete
	} else if job.Err != nil {
		log.Error("Job failed", "step", job.CurrentStep, "error", job.Err)
	}
	p.saveJobState(ctx, log, job)
}

func (p *Pool) ingestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	return p.ragService.IngestDocument(ctx, job)
}

func (p *Pool) processQuery(ctx context.Context, log *logger_i.Logger, job jobModel.Job) jobModel.Job {
	var messageHistory []string
	if job.ChatId != "" {
		history, err := p.jobService.MessageStore.GetMessageHistory(ctx, job.ChatId)
		if err != nil {
			log.Error("Failed to get message history", "err", err)
		}
		messageHistory = history
	}
	return p.ragService.ProcessRequest(ctx, job, messageHistory)
}

func (p *Pool) saveJobState(ctx context.Context, log *logger_i.Logger, job jobModel.Job) {
	// the final state must land even when the job ran out its deadline
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.RedisCallTimeout)
	defer cancel()
	if err := p.jobService.JobStore.SaveJob(saveCtx, job); err != nil {
		log.Error("Failed to update job state", "status", job.Status, "err", err)
	}
}
