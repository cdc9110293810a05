// Package cli provides the initialization shared by cmd/finbot,
// cmd/finbot-worker and cmd/finbot-cli.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finbot/internal/config"
	applog "finbot/internal/log"
	"finbot/internal/storage"
)

// SetupLogger installs a text logger at the level named by LOG_LEVEL
// (info when unset or unknown) as the process default.
func SetupLogger() *slog.Logger {
	level, err := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{Level: level, Output: os.Stdout})
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository, running migrations first.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *slog.Logger, cfg *config.Config) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, cfg.DefaultCurrency)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return repo
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
