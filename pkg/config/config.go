package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Mindburn-Labs/uow/pkg/database"
)

// Config holds process configuration.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	LogLevel       string
	LogFormat      string
	OTelEnabled    bool
	OTelEndpoint   string
	OTelSampleRate float64
	RedisAddr      string
	IdempotencyTTL time.Duration
	UnitsFile      string
}

// Load loads configuration from environment variables.
func Load() *Config {
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	dbURL := os.Getenv("DATABASE_URL")
	switch {
	case dbURL != "":
	case os.Getenv("DATABASE_HOST") != "":
		dbURL = postgresEndpoint().DSN()
	default:
		// Local file so the CLI works without a server.
		dbURL = "file:uow.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "text"
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	sampleRate := 1.0
	if v := os.Getenv("OTEL_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			sampleRate = f
		} else {
			slog.Warn("ignoring invalid OTEL_SAMPLE_RATE", "value", v, "error", err)
		}
	}

	ttl := 24 * time.Hour
	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		} else {
			slog.Warn("ignoring invalid IDEMPOTENCY_TTL", "value", v)
		}
	}

	return &Config{
		DatabaseDriver: driver,
		DatabaseURL:    dbURL,
		LogLevel:       logLevel,
		LogFormat:      logFormat,
		OTelEnabled:    os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint:   endpoint,
		OTelSampleRate: sampleRate,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		IdempotencyTTL: ttl,
		UnitsFile:      os.Getenv("UOW_CONFIG"),
	}
}

// postgresEndpoint reads a Postgres endpoint from DATABASE_HOST and friends.
func postgresEndpoint() database.ConnectionConfig {
	port := 5432
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			port = n
		} else {
			slog.Warn("ignoring invalid DATABASE_PORT", "value", v)
		}
	}
	return database.ConnectionConfig{
		Host:     os.Getenv("DATABASE_HOST"),
		Port:     port,
		Database: os.Getenv("DATABASE_NAME"),
		User:     os.Getenv("DATABASE_USER"),
		Password: os.Getenv("DATABASE_PASSWORD"),
		SSLMode:  os.Getenv("DATABASE_SSLMODE"),
	}
}
