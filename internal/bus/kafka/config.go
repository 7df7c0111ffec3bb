// Package kafka adapts transferengine/internal/bus.Publisher and the bus
// ingress adapter onto Sarama, following the teacher's
// internal/infrastructure/messaging/kafka package: a plain Config struct
// built from a ToSaramaConfig method, a sync producer for durability-critical
// publishes and a fire-and-forget async producer for best-effort ones.
package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"transferengine/internal/config"
)

// Config holds Sarama tuning knobs, built from config.BusConfig.
type Config struct {
	Brokers           []string
	ClientID          string
	EnableIdempotence bool
	CompressionType   string
	RequiredAcks      string
	MaxRetries        int
	RetryBackoff      time.Duration
}

func NewConfig(bus config.BusConfig) *Config {
	return &Config{
		Brokers:           bus.Brokers,
		ClientID:          "transferengine",
		EnableIdempotence: true,
		CompressionType:   "snappy",
		RequiredAcks:      "all",
		MaxRetries:        5,
		RetryBackoff:      100 * time.Millisecond,
	}
}

// ToSaramaConfig converts to Sarama configuration for the sync producer and
// consumer group paths.
func (c *Config) ToSaramaConfig() (*sarama.Config, error) {
	cfg := sarama.NewConfig()

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = c.EnableIdempotence
	cfg.Producer.Retry.Max = c.MaxRetries
	cfg.Producer.Retry.Backoff = c.RetryBackoff

	if c.EnableIdempotence {
		cfg.Net.MaxOpenRequests = 1
	} else {
		cfg.Net.MaxOpenRequests = 10
	}

	switch c.RequiredAcks {
	case "all", "-1":
		cfg.Producer.RequiredAcks = sarama.WaitForAll
	case "1":
		cfg.Producer.RequiredAcks = sarama.WaitForLocal
	case "0":
		cfg.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("invalid required acks value: %s", c.RequiredAcks)
	}

	switch c.CompressionType {
	case "none":
		cfg.Producer.Compression = sarama.CompressionNone
	case "gzip":
		cfg.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("invalid compression type: %s", c.CompressionType)
	}

	cfg.ClientID = c.ClientID
	cfg.Version = sarama.V3_0_0_0

	return cfg, nil
}
