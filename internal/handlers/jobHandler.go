package handlers

import (
	"context"
	"errors"
	"os"

	"github.com/akolanti/kbbot/internal/api"
	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/akolanti/kbbot/internal/job"
	"github.com/akolanti/kbbot/internal/rag"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

var errUnknownChat = errors.New("unknown chat id")

// Handler serves the chat front-end. Chat and upload requests become jobs
// for the worker pool; search is answered inline.
type Handler struct {
	jobs      *job.Service
	rag       rag.Service
	uploadDir string
	logger    *logger_i.Logger
}

func NewHandler(jobService *job.Service, ragService rag.Service, uploadDir string) *Handler {
	if uploadDir == "" {
		uploadDir = config.UploadTempDirName
	}
	log := logger_i.NewLogger("RequestHandler")
	log.Info("Starting job handler", "uploadDir", uploadDir)
	return &Handler{
		jobs:      jobService,
		rag:       ragService,
		uploadDir: uploadDir,
		logger:    log,
	}
}

// createChatJob queues a query. An empty chat id starts a new chat.
func (h *Handler) createChatJob(ctx context.Context, traceId string, req api.ChatRequest) (jobModel.Job, error) {
	chatId := req.ChatID
	if chatId == "" {
		chatId = newId()
		if err := h.jobs.StartChat(ctx, chatId); err != nil {
			return jobModel.Job{}, err
		}
		h.logger.Debug("New chat", "traceId", traceId, "chatId", chatId)
	} else if !h.jobs.IsKnownChat(ctx, chatId) {
		return jobModel.Job{}, errUnknownChat
	}

	j := job.NewQueryJob(traceId, chatId, req.Message)
	return j, h.jobs.Submit(ctx, j)
}

func (h *Handler) createIngestJob(ctx context.Context, traceId string, docName string, docPath string) (jobModel.Job, error) {
	j := job.NewIngestJob(traceId, docName, docPath)
	if err := h.jobs.Submit(ctx, j); err != nil {
		_ = os.Remove(docPath)
		return jobModel.Job{}, err
	}
	return j, nil
}
