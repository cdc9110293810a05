package backend

import (
	"time"

	"finbot/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is the assembled ledger plus what must be released on exit.
type BackendResult struct {
	Service *services.LedgerService
	// Ready pings the store; used by the readiness probe.
	Ready   Pinger
	Cleanup CleanupFunc
	// EventsEnabled is false when AMQP is not configured or unreachable.
	EventsEnabled bool
}

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath    string
	DefaultCurrency string

	// AMQP is optional; an empty URL disables ledger events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Location           *time.Location
	HighSpendThreshold int64
	HistoryLimit       int
}
