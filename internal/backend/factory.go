package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finbot/internal/amqp"
	"finbot/internal/core"
	"finbot/internal/services"
	"finbot/internal/storage"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Factory builds the ledger backend.
type Factory struct {
	logger *slog.Logger
	// dial is swapped in tests to avoid a broker.
	dial func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger, dial: amqp.NewClient}
}

// CreateBackend opens the store, optionally connects to AMQP and wires the
// ledger service. An unreachable broker is logged and leaves events off.
func (f *Factory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// A nil *amqp.Client must not end up inside the interface.
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(repo, publisher, services.Options{
		Location:           config.Location,
		HighSpendThreshold: core.Money(config.HighSpendThreshold),
		HistoryLimit:       config.HistoryLimit,
	})

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Service:       svc,
		Ready:         repo,
		Cleanup:       svc.Close,
		EventsEnabled: publisher != nil,
	}, nil
}
