package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/akolanti/kbbot/internal/adapter"
	"github.com/akolanti/kbbot/internal/adapter/utils"
	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

var respLogger = logger_i.NewLogger("response_writer")

func newId() string {
	return utils.GetNewUUID()
}

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are gone, nothing left but to log
		respLogger.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func traceId(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

// validateContext drops requests whose client already went away.
func (h *Handler) validateContext(r *http.Request) bool {
	if err := r.Context().Err(); err != nil {
		h.logger.Warn("context error", "traceId", traceId(r.Context()), "error", err, "remote", r.RemoteAddr)
		return false
	}
	return true
}

func (h *Handler) targetDirectory() (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0750); err != nil {
		return "", err
	}
	return h.uploadDir, nil
}
