// Package cli provides common CLI initialization utilities shared by
// cmd/spendly, cmd/reminder-worker and cmd/adduser.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendly/internal/backend"
	"spendly/internal/categorize"
	"spendly/internal/config"
	"spendly/internal/gemini"
	"spendly/internal/log"
	"spendly/internal/scheduler"
	"spendly/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the configuration and makes it
// the slog default. A nil config yields the development defaults.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	if cfg != nil {
		lc.Level = log.ParseLevel(cfg.LogLevel)
		lc.JSON = cfg.LogFormat == "json"
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend opens the configured database and reminder dispatcher.
// Exits the process on failure.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.Result {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "type", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// InitAI returns the categorizer and the summarizer. Without an API key the
// categorizer is keyword-only and the summarizer is nil.
func InitAI(ctx context.Context, logger *log.Logger, cfg *config.Config) (*categorize.Categorizer, services.Summarizer) {
	opts := []categorize.Option{
		categorize.WithLogger(logger),
		categorize.WithTimeout(cfg.AITimeout),
	}

	if cfg.GeminiAPIKey == "" {
		logger.Info("GEMINI_API_KEY not set, AI features disabled")
		return categorize.New(opts...), nil
	}

	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey,
		gemini.WithModel(cfg.GeminiModel),
		gemini.WithLogger(logger))
	if err != nil {
		logger.Warn("Failed to initialize Gemini client, AI features disabled", log.FieldError, err)
		return categorize.New(opts...), nil
	}

	logger.Info("Gemini client initialized", "model", cfg.GeminiModel)
	return categorize.New(append(opts, categorize.WithPredictor(client))...), client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
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

// ShutdownContext bounds the time spent draining after cancellation.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// NewReminderProcessor wires the reminder scan to the backend's dispatcher.
func NewReminderProcessor(logger *log.Logger, cfg *config.Config, res *backend.Result) *services.ReminderProcessor {
	return services.NewReminderProcessor(res.Store, res.Dispatcher, services.ReminderOptions{
		WindowDays: cfg.ReminderWindowDays,
	}, logger)
}

// ReminderJob runs one reminder pass as a scheduler job.
func ReminderJob(processor *services.ReminderProcessor) scheduler.Job {
	return func(ctx context.Context) error {
		_, err := processor.ProcessDueReminders(ctx, time.Now())
		return err
	}
}
