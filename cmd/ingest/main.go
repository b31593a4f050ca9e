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
	"github.com/akolanti/kbbot/pkg/logger_i"
)

func main() {
	os.Exit(run())
}

func run() int {
	var dataDir string
	flag.StringVar(&dataDir, "data_dir", config.DefaultDataDir, "directory with the .pdf, .docx and .md files to ingest")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	logger_i.Init(settings.LogLevel, settings.IsProd)
	logger := logger_i.NewLogger("ingest")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.NewComponents(ctx, settings)
	if err != nil {
		logger.Error("Could not initialise ingestion", "error", err)
		return 1
	}
	defer components.Close()

	report, err := components.Pipeline.Run(ctx, dataDir)
	if err != nil {
		logger.Error("Ingestion failed", "dataDir", dataDir, "error", err)
		return 1
	}
	for _, s := range report.Skipped {
		logger.Warn("Skipped file", "path", s.Path, "reason", s.Reason)
	}
	logger.Info("Ingestion complete", "files", report.Files, "chunks", report.Chunks, "collectionSize", report.Write.Total)
	fmt.Println(report.Write.String())
	return 0
}
