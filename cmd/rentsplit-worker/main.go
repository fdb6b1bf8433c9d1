package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentsplit/internal/amqp"
	"rentsplit/internal/cli"
	applog "rentsplit/internal/log"
	"rentsplit/internal/storage"
	"rentsplit/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(applog.New(applog.DefaultConfig()).Logger)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentActivity)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting rentsplit-worker", applog.FieldOperation, applog.OpStartup, "queue", cfg.AMQPQueue)

	repo, err := storage.NewActivityRepository(cfg.ActivityDBPath)
	if err != nil {
		logger.Error("Failed to initialize activity log", applog.FieldError, err, "path", cfg.ActivityDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingPrefix)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.BindQueue(cfg.AMQPQueue); err != nil {
		logger.WithComponent(applog.ComponentAMQP).Error("Failed to bind queue", applog.FieldError, err, "queue", cfg.AMQPQueue)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.NewActivityWorker(repo, logger.Logger)
	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		if err := client.Consume(ctx, cfg.AMQPQueue, w.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	// Let the handler finish the message in flight.
	cancel()
	select {
	case <-consumeDone:
		logger.Info("Worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
