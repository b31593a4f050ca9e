package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/kbbot/internal/adapter"
	"github.com/akolanti/kbbot/internal/adapter/utils"
	"github.com/akolanti/kbbot/internal/api"
	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/rag"
	"github.com/akolanti/kbbot/internal/rag/ingest"
)

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Start a new chat job
// @Description  Accepts a message, initializes a background processing job, and returns a job ID to track status. Omit chatID to start a new chat.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Chat Message and optional Chat ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Failure      503      {object}  api.JobResponse      "Job could not be queued"
// @Router       /chat [post]
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r) {
		return
	}
	defer closeBody(h, r.Body)

	var requestData api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || strings.TrimSpace(requestData.Message) == "" {
		h.logger.Warn("Bad chat request", "traceId", traceId(r.Context()), "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	j, err := h.createChatJob(r.Context(), traceId(r.Context()), requestData)
	if errors.Is(err, errUnknownChat) {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Unknown chat id")
		return
	} else if err != nil {
		h.logger.Error("Could not queue chat job", "traceId", traceId(r.Context()), "error", err)
		WriteErrorResponse(w, http.StatusServiceUnavailable, requestData.ChatID, "Could not queue job")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(j.Id, j.ChatId))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found"
// @Router       /status/{id} [get]
func (h *Handler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	h.logger.Debug("Get status request", "traceId", traceId(r.Context()), "jobId", idString)

	result, isFound := h.jobs.GetJob(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// ExamplesHandler godoc
// @Summary      Example questions
// @Description  Returns starter questions a chat client can offer.
// @Tags         Messaging
// @Produce      json
// @Success      200  {object}  api.ExamplesResponse
// @Router       /examples [get]
func (h *Handler) ExamplesHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.ExamplesResponse{Examples: config.ExamplePrompts})
}

// SearchHandler godoc
// @Summary      Search the knowledge base
// @Description  Returns the nearest stored chunks for a query without calling the language model.
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        request  body      api.SearchRequest    true  "Query and optional result count"
// @Success      200      {object}  api.SearchResponse
// @Failure      400      {object}  api.JobResponse  "Empty query"
// @Failure      409      {object}  api.JobResponse  "Embedder does not match the collection"
// @Failure      500      {object}  api.JobResponse  "Search failed"
// @Router       /search [post]
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r) {
		return
	}
	defer closeBody(h, r.Body)

	var req api.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "query is required")
		return
	}

	result, err := h.rag.Search(r.Context(), req.Query, req.K)
	if err != nil {
		code := rag.ErrorCode(err)
		h.logger.Error("Search failed", "traceId", traceId(r.Context()), "error", err)
		WriteErrorResponse(w, code, "", http.StatusText(code))
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(req.Query, result, rag.RenderSearch(result)))
}

// PostIngestHandler handles the uploading of documents for RAG ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a PDF, DOCX or Markdown file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  true  "The display name of the document"
// @Param        document       formData  file    true  "The PDF, DOCX or MD file to upload"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job id"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields or file too large"
// @Failure      415  {object}  api.JobResponse "Unsupported document format"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest [post]
func (h *Handler) PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r) {
		return
	}

	targetDir, err := h.targetDirectory()
	if err != nil {
		h.logger.Error("Couldn't get target directory", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	docName := r.FormValue("document_name")
	if docName == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document_name is required")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	if !ingest.IsSupported(fileMetadata.Filename) {
		WriteErrorResponse(w, http.StatusUnsupportedMediaType, docName, "Only .pdf, .docx and .md files are supported")
		return
	}

	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(fileMetadata.Filename))
	tempFilePath := filepath.Join(targetDir, filename)
	if err := saveUpload(tempFilePath, fileReader); err != nil {
		h.logger.Error("Could not store upload", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Write error")
		return
	}

	j, err := h.createIngestJob(r.Context(), traceId(r.Context()), docName, tempFilePath)
	if err != nil {
		h.logger.Error("Could not queue ingestion job", "error", err)
		WriteErrorResponse(w, http.StatusServiceUnavailable, docName, "Could not queue job")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(j.Id, ""))
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}

func closeBody(h *Handler, body io.ReadCloser) {
	if err := body.Close(); err != nil {
		h.logger.Error("Couldn't close the request body", "error", err)
	}
}
