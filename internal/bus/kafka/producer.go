package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"transferengine/internal/pkg/logging"
)

// Producer is a synchronous, ack-waiting publisher. The Outbox Relay uses
// this one: it only marks an event PUBLISHED after SendMessage returns, so a
// crash between publish and mark just replays the publish (spec ss4.3).
type Producer struct {
	producer sarama.SyncProducer
	mu       sync.RWMutex
	closed   bool
}

func NewProducer(cfg *Config) (*Producer, error) {
	saramaCfg, err := cfg.ToSaramaConfig()
	if err != nil {
		return nil, fmt.Errorf("build sarama config: %w", err)
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka sync producer: %w", err)
	}

	logging.Info("kafka sync producer initialized", map[string]interface{}{
		"brokers":   cfg.Brokers,
		"client_id": cfg.ClientID,
	})

	return &Producer{producer: producer}, nil
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("kafka producer is closed")
	}
	p.mu.RUnlock()

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send message to kafka topic %s: %w", topic, err)
	}

	logging.Debug("published to kafka", map[string]interface{}{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"key":       key,
	})
	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka sync producer: %w", err)
	}
	logging.Info("kafka sync producer closed", nil)
	return nil
}
