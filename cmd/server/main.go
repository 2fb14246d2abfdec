package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/takezou621/sedori-platform-sub006/internal/app"
	"github.com/takezou621/sedori-platform-sub006/internal/config"
	"github.com/takezou621/sedori-platform-sub006/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("search-service", "info").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		log.Error("exited with error", "error", err)
		os.Exit(1)
	}
}
