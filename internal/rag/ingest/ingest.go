package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

var (
	ErrEmptyChunk          = errors.New("chunk text is empty")
	ErrVectorCountMismatch = errors.New("embedder returned a different number of vectors")
	ErrInvalidChunkParams  = errors.New("invalid chunk size or overlap")
	ErrUnsupportedFormat   = errors.New("unsupported document format")
)

type Report struct {
	Files   int           `json:"files"`
	Skipped []SkippedFile `json:"skipped,omitempty"`
	Chunks  int           `json:"chunks"`
	Write   WriteReport   `json:"write"`
}

type Pipeline struct {
	loader       *Loader
	writer       *Writer
	chunkSize    int
	chunkOverlap int
	logger       *logger_i.Logger
}

func NewPipeline(loader *Loader, writer *Writer, chunkSize, chunkOverlap int) (*Pipeline, error) {
	if _, err := NewSplitter(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	return &Pipeline{
		loader:       loader,
		writer:       writer,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger_i.NewLogger("ingest_pipeline"),
	}, nil
}

// Run loads dataDir, splits it and writes every chunk to the collection.
func (p *Pipeline) Run(ctx context.Context, dataDir string) (Report, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ingestion", time.Since(start)) }()

	var report Report
	loaded, err := p.loader.LoadDirectory(ctx, dataDir)
	report.Files = loaded.Files
	report.Skipped = loaded.Skipped
	if err != nil {
		return report, err
	}
	p.logger.Info("documents loaded", "files", loaded.Files, "documents", len(loaded.Documents), "skipped", len(loaded.Skipped))

	chunks, err := SplitDocuments(loaded.Documents, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return report, err
	}
	report.Chunks = len(chunks)

	report.Write, err = p.writer.Write(ctx, chunks)
	return report, err
}

// IngestFile handles one uploaded file. Uploads always use content ids so
// they never overwrite positional ids from a directory run. A non-empty
// source replaces the temporary path in the chunk metadata.
func (p *Pipeline) IngestFile(ctx context.Context, path string, source string) (Report, error) {
	docs, err := p.loader.LoadFile(ctx, path)
	if err != nil {
		return Report{}, err
	}
	if source != "" {
		for i := range docs {
			docs[i].Metadata[commonModels.MetaSource] = source
		}
	}
	chunks, err := SplitDocuments(docs, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return Report{}, err
	}

	report := Report{Files: 1, Chunks: len(chunks)}
	report.Write, err = p.writer.WithIdStrategy(config.IdStrategyContent).Write(ctx, chunks)
	return report, err
}

// ProcessDocumentIngestion runs an upload job and removes the temporary file.
func (p *Pipeline) ProcessDocumentIngestion(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := p.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "jobId", job.Id)
	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestURL
	log.Debug("Processing document", "filename", docName, "path", docPath)

	job.CurrentStep = jobModel.IngestProcessing
	defer func() {
		if err := os.Remove(docPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error("Error removing file", "error", err)
		}
	}()

	report, err := p.IngestFile(ctx, docPath, docName)
	if err != nil {
		log.Error("Error processing document", "error", err)
		job.Status = jobModel.JobStatusError
		job.CurrentStep = jobModel.Error
		job.Err = err
		job.Error = jobModel.JobError{Code: ingestErrorCode(err), Message: fmt.Sprintf("ingesting %s failed", docName)}
		return job
	}

	job.JobPayload.Answer = report.Write.String()
	job.JobPayload.Sources = []string{docName}
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

func ingestErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrEmptyChunk):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
