package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig
	Capture  CaptureConfig
	Delivery DeliveryConfig
	Logging  LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// CaptureConfig controls request capture and storage behaviour.
type CaptureConfig struct {
	// PostgresDSN selects the Postgres store when set; the in-memory store
	// is used otherwise.
	PostgresDSN       string
	MaxBodyBytes      int
	MaxRequestsPerBox int
	AutoCreateInbox   bool
}

// DeliveryConfig holds defaults for the webhook delivery client.
type DeliveryConfig struct {
	WebhookURL     string
	RequestTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	BatchSize      int
	Workers        int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"

	defaultMaxBodyBytes      = 64 * 1024
	defaultMaxRequestsPerBox = 500

	defaultRequestTimeout = 15 * time.Second
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultBatchSize      = 100
	defaultWorkers        = 4
)

// Load reads configuration from environment variables, applying defaults.
// A .env file in the working directory is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTP: HTTPConfig{
			Host: valueOrDefault("SERVER_HOST", defaultHost),
		},
		Capture: CaptureConfig{
			PostgresDSN:       os.Getenv("CAPTURE_POSTGRES_DSN"),
			MaxBodyBytes:      parseIntWithDefault("CAPTURE_MAX_BODY_BYTES", defaultMaxBodyBytes),
			MaxRequestsPerBox: parseIntWithDefault("CAPTURE_MAX_REQUESTS_PER_INBOX", defaultMaxRequestsPerBox),
			AutoCreateInbox:   parseBoolWithDefault("CAPTURE_AUTO_CREATE_INBOX", true),
		},
		Delivery: DeliveryConfig{
			WebhookURL:  os.Getenv("WEBHOOK_URL"),
			MaxAttempts: parseIntWithDefault("WEBHOOK_MAX_ATTEMPTS", defaultMaxAttempts),
			BatchSize:   parseIntWithDefault("WEBHOOK_BATCH_SIZE", defaultBatchSize),
			Workers:     parseIntWithDefault("WEBHOOK_WORKERS", defaultWorkers),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	cfg.HTTP.ReadTimeout, err = parseDurationWithDefault("SERVER_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.WriteTimeout, err = parseDurationWithDefault("SERVER_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.IdleTimeout, err = parseDurationWithDefault("SERVER_IDLE_TIMEOUT", defaultIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.ShutdownTimeout, err = parseDurationWithDefault("SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	cfg.Delivery.RequestTimeout, err = parseDurationWithDefault("WEBHOOK_REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.Delivery.InitialBackoff, err = parseDurationWithDefault("WEBHOOK_INITIAL_BACKOFF", defaultInitialBackoff)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDurationWithDefault(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
