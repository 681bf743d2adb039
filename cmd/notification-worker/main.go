package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensed/internal/amqp"
	"expensed/internal/cli"
	"expensed/internal/log"
	"expensed/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting notification-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	dispatcher := services.NewDispatcher(repo, logger, cfg.NotificationBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Drain anything left over from downtime before consuming live events.
	if err := dispatcher.StartupCheck(ctx); err != nil {
		logger.Error("Startup dispatch check failed", "error", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		group.Go(func() error {
			err := amqpClient.ConsumeNotifications(groupCtx, func(event *amqp.NotificationEvent) error {
				err := dispatcher.HandleEvent(groupCtx, event)
				if errors.Is(err, services.ErrNotificationGone) {
					// Dropping the message is correct here.
					return nil
				}
				return err
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		logger.Info("AMQP unavailable, relying on periodic dispatch scan only")
	}

	// Periodic scan for notifications whose queue event was lost.
	group.Go(func() error {
		ticker := time.NewTicker(cfg.DispatchScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if err := dispatcher.ProcessUndispatched(groupCtx); err != nil {
					logger.Error("Periodic dispatch scan failed", "error", err)
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		repo.Close()
		if amqpClient != nil {
			amqpClient.Close()
		}
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Notification-worker shutdown complete")
}
