package backend

import (
	"context"

	"spendly/internal/services"
	"spendly/internal/storage"
)

// CleanupFunc releases resources held by a Result.
type CleanupFunc func() error

// Result is the wired persistence and delivery pair.
type Result struct {
	Store      *storage.Repository
	Dispatcher services.ReminderDispatcher
	Cleanup    CleanupFunc
}

// Factory opens backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresURL  string
	MaxAttempts  int

	// AMQP is optional; without a URL reminders go to the log.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names a database driver.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Dialect maps the backend type to its SQL dialect.
func (bt BackendType) Dialect() (storage.Dialect, bool) {
	return storage.DialectFor(string(bt))
}
