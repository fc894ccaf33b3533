package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/avolier/pressroom"
	"github.com/avolier/pressroom/storage"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cfg, err := pressroom.LoadConfig()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := pressroom.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	log.Info("starting pressroom", zap.String("version", version), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StorageConfig(), log)
	if err != nil {
		log.Fatal("open storage", zap.Error(err))
	}
	defer store.Close()

	app := pressroom.New(cfg, store, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
			os.Exit(1)
		}
	}
}
