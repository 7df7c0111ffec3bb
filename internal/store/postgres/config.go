package postgres

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds PostgreSQL connection configuration. Mirrors the env-var
// surface of transferengine/internal/config.DatabaseConfig so standalone
// tests (which don't build a full config.Config) can still construct one
// directly from the environment.
type Config struct {
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

func NewConfigFromEnv() *Config {
	return &Config{
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
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
