package backend

import (
	"context"
	"fmt"

	"spendly/internal/amqp"
	"spendly/internal/log"
	"spendly/internal/services"
	"spendly/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// Create opens the database and picks the reminder dispatcher. A broker that
// cannot be reached degrades to the log dispatcher.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dialect, ok := config.Type.Dialect()
	if !ok {
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	repo, err := storage.Open(ctx, storage.Config{
		Dialect:     dialect,
		SQLitePath:  config.SQLiteDBPath,
		PostgresURL: config.PostgresURL,
		MaxAttempts: config.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", config.Type, err)
	}

	var dispatcher services.ReminderDispatcher = services.NewLogDispatcher(f.logger)
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, reminders will be logged only", log.FieldError, err)
			amqpClient = nil
		} else {
			dispatcher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"amqp_enabled", amqpClient != nil)

	return &Result{
		Store:      repo,
		Dispatcher: dispatcher,
		Cleanup: func() error {
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					f.logger.Warn("Failed to close AMQP client", log.FieldError, err)
				}
			}
			return repo.Close()
		},
	}, nil
}
