package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"fundreport/internal/amqp"
	"fundreport/internal/cli"
	"fundreport/internal/core"
	"fundreport/internal/log"
	"fundreport/internal/services"
	"fundreport/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "run a single reconciliation pass and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting reconcile-worker")

	backend := cli.InitBackend(cfg, logger)
	defer backend.Close()

	// Without a broker, missed transfers are only logged.
	var publisher worker.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in log-only mode", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - missed transfers will only be logged")
	}

	clock := core.SystemClock(cfg.Location())
	w := worker.NewReconcileWorker(
		backend,
		services.NewTransferService(backend, backend, clock),
		publisher,
		cfg.ReconcileConcurrency,
		clock,
		logger)

	if *once {
		stats, err := w.RunOnce(context.Background())
		if err != nil {
			logger.Error("Reconciliation failed", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Reconciliation complete",
			"schedules", stats.Schedules,
			"failed", stats.Failed,
			"published", stats.Published,
			"errors", stats.Errors)
		return
	}

	ctx := cli.GracefulShutdown(logger, 30*time.Second, nil)
	logger.Info("Reconcile worker configured",
		"interval", cfg.ReconcileInterval,
		"concurrency", cfg.ReconcileConcurrency,
		"backend", cfg.DataBackend)

	if err := w.Run(ctx, cfg.ReconcileInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Reconcile worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Reconcile-worker shutdown complete")
}
