// Package main запускает конвейер обработки дневных файлов лотереи.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/lottery-pipeline/internal/config"
	"github.com/mmeshcher/lottery-pipeline/internal/handler"
	"github.com/mmeshcher/lottery-pipeline/internal/middleware"
	"github.com/mmeshcher/lottery-pipeline/internal/processor"
	"github.com/mmeshcher/lottery-pipeline/internal/repository"
	"github.com/mmeshcher/lottery-pipeline/internal/state"
	"github.com/mmeshcher/lottery-pipeline/internal/watcher"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	store := state.NewStore(cfg.StateFile, logger)
	proc := processor.New(store, repo, logger)

	w, err := watcher.New(cfg.InputDir, cfg.ProcessedDir, cfg.FailedDir, cfg.PollInterval, proc, logger)
	if err != nil {
		sugar.Fatalw("watcher initialization error", "error", err.Error())
	}

	auth := middleware.NewAPIKeyMiddleware(cfg.APIKey)
	h := handler.NewHandler(repo, proc, logger, auth)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск наблюдателя за входным каталогом
	g.Go(func() error {
		return w.Run(ctx)
	})

	// Запуск HTTP-сервера инспекционного API
	g.Go(func() error {
		sugar.Infow("starting pipeline server", "addr", cfg.RunAddress, "input", cfg.InputDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down pipeline...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("pipeline stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
