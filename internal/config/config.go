// Package config loads all runtime settings from the environment, following
// the flat-struct-plus-getEnv-helpers style used throughout this codebase -
// no config file format, no env library.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Database    DatabaseConfig
	Idempotency IdempotencyConfig
	Outbox      OutboxConfig
	Processor   ProcessorConfig
	Bus         BusConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig is read here and handed to store/postgres.Config so every
// env var lives in one place; store/postgres keeps its own defaults for
// standalone use (e.g. from tests that don't go through config.Load).
type DatabaseConfig struct {
	Host              string
	Port              int
	Database          string
	User              string
	Password          string
	SSLMode           string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   string
	ConnMaxIdleTime   string
	HealthCheckPeriod string
}

// IdempotencyConfig controls the Idempotency Layer (spec ss4.2).
type IdempotencyConfig struct {
	WindowHours int
}

func (c IdempotencyConfig) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// OutboxConfig controls the Outbox Relay (spec ss4.3).
type OutboxConfig struct {
	PollingIntervalMS int
	BatchSize         int
	MaxRetries        int
}

func (c OutboxConfig) PollInterval() time.Duration {
	return time.Duration(c.PollingIntervalMS) * time.Millisecond
}

// ProcessorConfig controls the Transaction Processor's retry policy on
// transient conflicts (spec ss4.1).
type ProcessorConfig struct {
	RetryAttempts    int
	BackoffInitialMS int
	BackoffMaxMS     int
}

func (c ProcessorConfig) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMS) * time.Millisecond
}

func (c ProcessorConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMS) * time.Millisecond
}

// BusConfig names the topics the ingress adapter, DLQ router, and Relay
// need (spec ss6).
type BusConfig struct {
	Brokers      []string
	IngressTopic string
	LedgerTopic  string
	DLQTopic     string
	ConsumerGroup string
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port: getEnv("LISTEN_PORT", "8081"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			Database:          getEnv("DB_NAME", "transferengine"),
			User:              getEnv("DB_USER", "transferengine"),
			Password:          getEnv("DB_PASSWORD", ""),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:      getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:      getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:   getEnv("DB_CONN_MAX_LIFETIME", "30m"),
			ConnMaxIdleTime:   getEnv("DB_CONN_MAX_IDLE_TIME", "5m"),
			HealthCheckPeriod: getEnv("DB_HEALTH_CHECK_PERIOD", "30s"),
		},
		Idempotency: IdempotencyConfig{
			WindowHours: getEnvAsInt("IDEMPOTENCY_WINDOW_HOURS", 24),
		},
		Outbox: OutboxConfig{
			PollingIntervalMS: getEnvAsInt("OUTBOX_POLLING_INTERVAL_MS", 100),
			BatchSize:         getEnvAsInt("OUTBOX_BATCH_SIZE", 10),
			MaxRetries:        getEnvAsInt("OUTBOX_MAX_RETRIES", 10),
		},
		Processor: ProcessorConfig{
			RetryAttempts:    getEnvAsInt("PROCESSOR_RETRY_ATTEMPTS", 3),
			BackoffInitialMS: getEnvAsInt("PROCESSOR_BACKOFF_INITIAL_MS", 100),
			BackoffMaxMS:     getEnvAsInt("PROCESSOR_BACKOFF_MAX_MS", 2000),
		},
		Bus: BusConfig{
			Brokers:       getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			IngressTopic:  getEnv("INGRESS_TOPIC_NAME", "transfers.requests"),
			LedgerTopic:   getEnv("LEDGER_TOPIC_NAME", "ledger.transactions"),
			DLQTopic:      getEnv("DLQ_TOPIC_NAME", "transfers.dlq"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "transferengine-processor"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	return strings.Split(value, ",")
}
