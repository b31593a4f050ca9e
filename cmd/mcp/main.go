package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/kbbot/internal/app"
	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/mcpserver"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	// stdout carries the protocol
	logger_i.InitWithWriter(os.Stderr, settings.LogLevel, settings.IsProd)
	logger := logger_i.NewLogger("mcp")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.NewComponents(ctx, settings)
	if err != nil {
		logger.Error("Could not initialise components", "error", err)
		os.Exit(1)
	}
	defer components.Close()

	ragService, err := components.NewRagService(ctx)
	if err != nil {
		logger.Error("Could not initialise RAG service", "error", err)
		components.Close()
		os.Exit(1)
	}

	if err := mcpserver.NewServer(ragService).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("MCP server stopped", "error", err)
		components.Close()
		os.Exit(1)
	}
}
