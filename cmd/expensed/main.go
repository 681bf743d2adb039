package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"expensed/internal/auth"
	"expensed/internal/cli"
	apphttp "expensed/internal/http"
	"expensed/internal/log"
	"expensed/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentHTTP)
	logger.Info("Starting expensed API server")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	gate := auth.NewGate(cfg.JWTSecret, cfg.TokenTTL, repo.Revocations())

	// A nil *amqp.Client must stay a nil interface, or the notifier would
	// call through it.
	var publisher services.EventPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	notifier := services.NewNotifier(repo, publisher, cfg.LargeExpenseThresholdCents)

	srv := apphttp.NewServer(cfg, repo, gate, notifier, logger)
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Server listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
