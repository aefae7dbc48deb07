package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// DevJWTSecret is the signing key used when none is configured. It is
// rejected when APP_ENV is production.
const DevJWTSecret = "spendly-dev-secret-change-me"

type Config struct {
	// HTTP Server
	Port            string
	AppEnv          string
	TrustedProxies  []string
	RateLimitOn     bool
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DBDriver     string
	SQLiteDBPath string
	DatabaseURL  string
	DBMaxRetries int

	// Auth
	JWTSecretKey   string
	AccessTokenTTL time.Duration

	// AI
	GeminiAPIKey    string
	GeminiModel     string
	AITimeout       time.Duration
	InsightCacheTTL time.Duration

	// Budget
	BudgetDeleteCascade bool

	// Reminders
	ReminderEnabled    bool
	ReminderSchedule   string
	ReminderWindowDays int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Load builds the configuration from defaults, the optional TOML file named
// by SPENDLY_CONFIG_FILE and the environment, in increasing precedence.
// File keys are the lowercase environment names, e.g. db_driver.
func Load() (*Config, error) {
	src := source{}
	if path := os.Getenv("SPENDLY_CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	cfg := &Config{
		Port:            src.get("PORT", "8000"),
		AppEnv:          src.get("APP_ENV", "development"),
		TrustedProxies:  src.getList("TRUSTED_PROXIES"),
		RateLimitOn:     src.getBool("RATE_LIMIT_ENABLED", true),
		ShutdownTimeout: src.getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		LogLevel:  src.get("LOG_LEVEL", "info"),
		LogFormat: src.get("LOG_FORMAT", "text"),

		DBDriver:     src.get("DB_DRIVER", "sqlite"),
		SQLiteDBPath: src.get("SQLITE_DB_PATH", "./data/spendly.db"),
		DatabaseURL:  src.get("DATABASE_URL", ""),
		DBMaxRetries: src.getInt("DB_MAX_RETRIES", 3),

		JWTSecretKey:   src.get("JWT_SECRET_KEY", DevJWTSecret),
		AccessTokenTTL: time.Duration(src.getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,

		GeminiAPIKey:    src.get("GEMINI_API_KEY", ""),
		GeminiModel:     src.get("GEMINI_MODEL", "gemini-2.5-flash"),
		AITimeout:       src.getDuration("AI_TIMEOUT", 10*time.Second),
		InsightCacheTTL: src.getDuration("INSIGHT_CACHE_TTL", 15*time.Minute),

		BudgetDeleteCascade: src.getBool("BUDGET_DELETE_CASCADE", true),

		ReminderEnabled:    src.getBool("REMINDER_ENABLED", false),
		ReminderSchedule:   src.get("REMINDER_SCHEDULE", "0 9 * * *"),
		ReminderWindowDays: src.getInt("REMINDER_WINDOW_DAYS", 7),

		AMQPURL:      src.get("AMQP_URL", ""),
		AMQPExchange: src.get("AMQP_EXCHANGE", "spendly"),
		AMQPQueue:    src.get("AMQP_QUEUE", "reminders"),
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	switch c.DBDriver {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite driver")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres driver")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of [sqlite postgres]", c.DBDriver))
	}

	if c.DBMaxRetries < 1 || c.DBMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid DB max retries %d: must be between 1 and 10", c.DBMaxRetries))
	}

	if c.JWTSecretKey == "" {
		errors = append(errors, "JWT secret key cannot be empty")
	} else if c.IsProduction() && c.JWTSecretKey == DevJWTSecret {
		errors = append(errors, "JWT_SECRET_KEY must be set in production")
	}
	if c.AccessTokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid access token lifetime %v: must be at least 1 minute", c.AccessTokenTTL))
	}

	if c.AITimeout < 100*time.Millisecond || c.AITimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be between 100ms and 2m", c.AITimeout))
	}

	if c.ReminderWindowDays < 1 || c.ReminderWindowDays > 365 {
		errors = append(errors, fmt.Sprintf("invalid reminder window %d: must be between 1 and 365 days", c.ReminderWindowDays))
	}
	if c.ReminderEnabled {
		if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderSchedule, err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			values[strings.ToLower(k)] = strings.Join(parts, ",")
		default:
			values[strings.ToLower(k)] = fmt.Sprint(val)
		}
	}
	return values, nil
}

// source resolves a key from the environment, then the config file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	if value, ok := s.file[strings.ToLower(key)]; ok && value != "" {
		return value, true
	}
	return "", false
}

func (s source) get(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value, ok := s.lookup(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value, ok := s.lookup(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := s.lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (s source) getList(key string) []string {
	value, ok := s.lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
