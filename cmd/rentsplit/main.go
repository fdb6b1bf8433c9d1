package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"rentsplit/internal/backend"
	"rentsplit/internal/cli"
	apphttp "rentsplit/internal/http"
	"rentsplit/internal/lifecycle"
	applog "rentsplit/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(applog.New(applog.DefaultConfig()).Logger)
	logger := cli.SetupLogger(cfg.LogLevel)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	// Ledger storage plus the optional activity log and broker.
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger).Create(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctrl, err := lifecycle.New(context.Background(), res.Store, res.Recorder, bcfg.Seed)
	if err != nil {
		logger.Error("Failed to load ledger", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	opts := apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ArchiveCacheTTL:    cfg.ArchiveCacheTTL,
		TrustedProxies:     cfg.TrustedProxies,
	}
	if res.Activity != nil {
		opts.Activity = res.Activity
	}
	srv := apphttp.NewServer(":"+cfg.Port, ctrl, opts)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting rentsplit server", applog.FieldOperation, applog.OpStartup, "port", cfg.Port, "backend", cfg.DataBackend, "state", ctrl.State())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
