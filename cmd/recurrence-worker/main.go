package main

import (
	"time"

	"expensed/internal/cli"
	"expensed/internal/log"
	"expensed/internal/scheduler"
	"expensed/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentSweep)
	logger.Info("Starting recurrence-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	var publisher services.EventPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	notifier := services.NewNotifier(repo, publisher, cfg.LargeExpenseThresholdCents)
	materializer := services.NewMaterializer(repo, notifier)

	sched := scheduler.New(materializer, cfg.SweepInterval,
		logger.WithComponent(log.ComponentScheduler))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, sched.Stop)

	logger.Info("Sweep configured",
		"interval", cfg.SweepInterval.String(),
		"sqlite_db", cfg.SQLiteDBPath,
		"threshold_cents", cfg.LargeExpenseThresholdCents)

	sched.Start(ctx)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurrence-worker shutdown complete")
}
