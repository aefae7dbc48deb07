// Package storage persists users, budgets and subscriptions in SQLite or
// Postgres and runs ledger mutations inside retried transactions.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	defaultMaxAttempts = 3
	retryBackoff       = 25 * time.Millisecond
	sqliteParams       = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"
)

// Config selects and configures the database.
type Config struct {
	Dialect     Dialect
	SQLitePath  string
	PostgresURL string
	// MaxAttempts bounds how often a transaction is tried on transient errors.
	MaxAttempts int
}

// Repository owns the connection pool. Embedded Queries run outside any transaction.
type Repository struct {
	*Queries
	db          *sql.DB
	dialect     Dialect
	maxAttempts int
}

// Open connects to the configured database and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	var dsn string
	switch cfg.Dialect.Name {
	case SQLite.Name:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = sqliteDSN(cfg.SQLitePath)
	case Postgres.Name:
		dsn = cfg.PostgresURL
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", cfg.Dialect.Name)
	}

	db, err := sql.Open(cfg.Dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Dialect.Name, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(cfg.Dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	slog.InfoContext(ctx, "Database ready", "dialect", cfg.Dialect.Name, "max_attempts", attempts)

	return &Repository{
		Queries:     New(db, cfg.Dialect),
		db:          db,
		dialect:     cfg.Dialect,
		maxAttempts: attempts,
	}, nil
}

func sqliteDSN(path string) string {
	return path + "?" + sqliteParams
}

// Dialect returns the dialect the repository speaks.
func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// Ping verifies the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InTx runs fn in a read-committed transaction, committing when fn returns nil
// and rolling back otherwise. Transient failures (busy database, serialization
// failure, deadlock) rerun fn from scratch up to the configured attempt count,
// so fn must not keep state between calls.
func (r *Repository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = r.runTx(ctx, fn)
		if err == nil || !IsTransient(err) {
			return err
		}
		slog.WarnContext(ctx, "Transient database error, retrying transaction",
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", r.maxAttempts, err)
}

func (r *Repository) runTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	opts := &sql.TxOptions{}
	if r.dialect.Name == Postgres.Name {
		opts.Isolation = sql.LevelReadCommitted
	}

	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(New(tx, r.dialect)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
