package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/kbbot/internal/adapter/utils"
	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/handlers"
	"github.com/akolanti/kbbot/internal/middleware"
	"github.com/akolanti/kbbot/internal/worker"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

type Server struct {
	httpServer *http.Server
	logger     *logger_i.Logger
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan struct{}
	WorkerStop       chan struct{}
	Workers          *worker.Pool
	CloseServices    func()
}

// Routes mounts every API endpoint behind the middleware chain.
func Routes(h *handlers.Handler, mw *middleware.Middleware) http.Handler {
	r := utils.NewRouter()

	r.Get("/health", h.GetHandler)
	r.Get("/examples", mw.Wrap(h.ExamplesHandler))
	r.Post("/chat", mw.Wrap(h.ChatHandler))
	r.Get("/status/{id}", mw.Wrap(h.GetStatusHandler))
	r.Post("/search", mw.Wrap(h.SearchHandler))
	r.Post("/ingest", mw.Wrap(h.PostIngestHandler))
	return r
}

func NewServer(listenAddr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         listenAddr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("Server"),
	}
}

// Start serves until Shutdown. Any other serve failure, such as a busy port,
// is returned.
func (s *Server) Start() error {
	s.logger.Info("Server is listening", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err, "addr", s.httpServer.Addr)
		return err
	}
	return nil
}

// ShutDownHandler waits for a signal, then stops accepting requests, drains
// the workers and closes external clients, in that order.
func (s *Server) ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	s.logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.httpServer.SetKeepAlivesEnabled(false)
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Could not shutdown gracefully", "error", err)
		}

		close(shutdownParams.WorkerStop)
		shutdownParams.Workers.Wait()
		shutdownParams.CloseServices()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Graceful shutdown complete")
	case <-ctx.Done():
		s.logger.Error("Forced shutdown")
		os.Exit(1)
	}
	close(shutdownParams.StopExecution)
}
