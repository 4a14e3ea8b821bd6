package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/user/alttext-service/internal/app"
	"github.com/user/alttext-service/pkg/config"
	"github.com/user/alttext-service/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	// --- Logger ---
	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Wiring ---
	service, err := app.New(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialise service", zap.Error(err))
	}
	defer service.Close()

	if err := service.Serve(ctx); err != nil {
		zlog.Error("server stopped", zap.Error(err))
		return
	}
	zlog.Info("server exiting")
}
