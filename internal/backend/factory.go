package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rentsplit/internal/amqp"
	"rentsplit/internal/core"
	"rentsplit/internal/events"
	"rentsplit/internal/lifecycle"
	applog "rentsplit/internal/log"
	"rentsplit/internal/storage"
	"rentsplit/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, now: time.Now}
}

// Create opens the ledger store and any configured event sinks. Cleanup
// drains queued events before closing the sinks.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	res := &Result{Store: store, Recorder: events.Discard}
	var (
		sinks   []events.Sink
		closers []func() error
	)
	fail := func(err error) (*Result, error) {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	if config.ActivityDBPath != "" {
		repo, err := storage.NewActivityRepository(config.ActivityDBPath)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize activity log: %w", err))
		}
		closers = append(closers, repo.Close)
		sinks = append(sinks, repo)
		res.Activity = repo
		f.logger.InfoContext(ctx, "Activity log enabled", "path", config.ActivityDBPath)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingPrefix)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize AMQP client: %w", err))
		}
		closers = append(closers, client.Close)
		sinks = append(sinks, client)
		f.logger.InfoContext(ctx, "Publishing ledger events",
			applog.FieldComponent, applog.ComponentAMQP,
			"exchange", config.AMQPExchange,
			"routing_prefix", config.AMQPRoutingPrefix)
	}

	var worker *events.Worker
	if len(sinks) > 0 {
		worker = events.NewWorker(f.logger, config.EventBuffer, sinks...)
		worker.Start()
		res.Recorder = worker
	}

	res.Cleanup = func() error {
		if worker != nil {
			worker.Shutdown()
		}
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createStore(config Config) (lifecycle.Store, error) {
	switch config.Type {
	case FileBackend:
		fs, err := storage.NewFileStore(config.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.Info("Initialized file backend", "dir", fs.Dir())
		return fs, nil
	case MemoryBackend:
		st := core.ServerState{State: core.StateActive, Mates: config.Seed}
		f.logger.Info("Initialized memory backend", "mates", len(config.Seed))
		return memory.New(st, core.Ledger{Date: core.MonthOf(f.now())}), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
