package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"finbot/internal/amqp"
	"finbot/internal/cli"
	"finbot/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting finbot-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		_ = repo.Close()
		os.Exit(1)
	}
	defer client.Close()

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err, "timezone", cfg.Timezone)
		_ = client.Close()
		_ = repo.Close()
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	w := worker.NewNotificationWorker(repo, loc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue, "timezone", cfg.Timezone)
		err := client.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		_ = client.Close()
		_ = repo.Close()
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
