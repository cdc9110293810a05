package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"finbot/internal/backend"
	"finbot/internal/bot"
	"finbot/internal/cli"
	apphttp "finbot/internal/http"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting finbot")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup failed", "error", err)
		}
	}()

	router := bot.NewRouter(res.Service)
	srv := apphttp.NewServer(":"+cfg.Port, router, res.Service, res.Ready, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening",
			"port", cfg.Port,
			"database", cfg.SQLiteDBPath,
			"events", res.EventsEnabled,
			"commands", len(router.Commands()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		_ = res.Cleanup()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
