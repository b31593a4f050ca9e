package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Middleware runs trace injection, bearer auth and per-IP rate limiting in
// front of every API handler. An empty token disables auth.
type Middleware struct {
	authToken string
	limiter   *IPRateLimiter
	logger    *logger_i.Logger
}

func New(authToken string, limit rate.Limit, burst int) *Middleware {
	log := logger_i.NewLogger("middleware")
	if authToken == "" {
		log.Warn("No auth token configured, requests are not authenticated")
	}
	return &Middleware{
		authToken: authToken,
		limiter:   NewIPRateLimiter(limit, burst),
		logger:    log,
	}
}

func (m *Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := m.processRequest(requestResponseStruct{req: r, writer: rec, logger: m.logger})

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		} else {
			handleBadRequest(re)
		}
		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
	}
}

func (m *Middleware) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("New request received", "path", re.req.URL.Path)
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = m.authenticate(re)
	if re.badRequest.isBadRequest {
		return re
	}
	return m.rateLimiter(re)
}
