package backend

import (
	"errors"
	"fmt"

	"finbot/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, fmt.Errorf("load timezone: %w", err)
	}

	return Config{
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		DefaultCurrency: appConfig.DefaultCurrency,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Location:           loc,
		HighSpendThreshold: appConfig.HighSpendThreshold,
		HistoryLimit:       appConfig.HistoryLimit,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}
