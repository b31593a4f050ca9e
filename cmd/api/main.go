// @title           Knowledge Base Chat API
// @version         1.0
// @description     Asynchronous question answering over the organisation knowledge base.
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/kbbot/internal/app"
	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/data/redisStore"
	"github.com/akolanti/kbbot/internal/data/store"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
	"github.com/akolanti/kbbot/internal/handlers"
	"github.com/akolanti/kbbot/internal/job"
	"github.com/akolanti/kbbot/internal/middleware"
	"github.com/akolanti/kbbot/internal/server"
	"github.com/akolanti/kbbot/internal/worker"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"golang.org/x/time/rate"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger_i.Init(settings.LogLevel, settings.IsProd)
	logger := logger_i.NewLogger("main")

	flag.StringVar(&settings.ListenAddr, "listen-addr", settings.ListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	components, err := app.NewComponents(serviceContext, settings)
	if err != nil {
		logger.Error("Could not initialise components", "error", err)
		os.Exit(1)
	}
	ragService, err := components.NewRagService(serviceContext)
	if err != nil {
		logger.Error("Could not initialise RAG service", "error", err)
		components.Close()
		os.Exit(1)
	}

	serviceConfig := job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, config.BufferLimit),
		DispatcherChannel: make(chan bool, 1),
	}
	closers := []func(){components.Close}

	jobRedis, jobErr := redisStore.NewStore(serviceContext, settings.RedisAddr, settings.RedisPassword, config.RedisJobStore)
	msgRedis, msgErr := redisStore.NewStore(serviceContext, settings.RedisAddr, settings.RedisPassword, config.RedisMessageStore)
	if jobErr != nil || msgErr != nil {
		logger.Warn("Redis stores are offline, using in-memory stores", "jobStoreError", jobErr, "messageStoreError", msgErr)
		for _, s := range []*redisStore.Store{jobRedis, msgRedis} {
			if s != nil {
				_ = s.Close()
			}
		}
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
	} else {
		serviceConfig.JobStore = store.NewRedisJobStore(jobRedis)
		serviceConfig.MessageStore = store.NewRedisMessageStore(msgRedis)
		closers = append(closers, func() { _ = jobRedis.Close() }, func() { _ = msgRedis.Close() })
	}
	jobService := job.InitJobService(serviceConfig)
	logger.Info("Starting job service")

	workerStop := make(chan struct{})
	pool := worker.NewPool(jobService, ragService, settings.WorkerCount)
	pool.Start(workerStop)

	handler := handlers.NewHandler(jobService, ragService, config.UploadTempDirName)
	mw := middleware.New(settings.AuthToken, rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)
	srv := server.NewServer(settings.ListenAddr, server.Routes(handler, mw))

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan struct{})

	go srv.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       workerStop,
		Workers:          pool,
		CloseServices: func() {
			closeExternalServices()
			for _, c := range closers {
				c()
			}
		},
	})
	serveFailed := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serveFailed <- err
			gracefulShutdown <- syscall.SIGTERM
		}
	}()

	<-stopExecution
	select {
	case err := <-serveFailed:
		logger.Error("Server stopped after serve failure", "error", err)
		os.Exit(1)
	default:
		logger.Info("Server stopped")
	}
}
