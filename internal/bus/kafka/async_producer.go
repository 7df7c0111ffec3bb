package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"transferengine/internal/pkg/logging"
	"transferengine/internal/pkg/telemetry"
)

// AsyncProducer is a fire-and-forget publisher. The bus ingress adapter uses
// this one for DLQ routing (spec ss4.4): a record that can't be processed
// after retries is routed best-effort, and a dropped DLQ message is logged
// rather than blocking the consumer loop.
type AsyncProducer struct {
	producer sarama.AsyncProducer

	errorCount   atomic.Int64
	droppedCount atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewAsyncProducer(cfg *Config) (*AsyncProducer, error) {
	saramaCfg, err := cfg.ToSaramaConfig()
	if err != nil {
		return nil, fmt.Errorf("build sarama config: %w", err)
	}

	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Idempotent = false // sarama requires WaitForAll for idempotent producers
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Flush.Frequency = 10 * time.Millisecond
	saramaCfg.ChannelBufferSize = 10000

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka async producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ap := &AsyncProducer{producer: producer, ctx: ctx, cancel: cancel}

	ap.wg.Add(1)
	go ap.monitorErrors()

	logging.Info("kafka async producer initialized", map[string]interface{}{
		"brokers": cfg.Brokers,
	})
	return ap, nil
}

// Publish queues payload for delivery without waiting for a broker ack. A
// full queue or a closed producer drops the message rather than blocking the
// caller's consumer loop.
func (ap *AsyncProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	ap.mu.RLock()
	if ap.closed {
		ap.mu.RUnlock()
		ap.droppedCount.Add(1)
		telemetry.DLQDroppedTotal.WithLabelValues("closed").Inc()
		return fmt.Errorf("async kafka producer is closed")
	}
	ap.mu.RUnlock()

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case ap.producer.Input() <- msg:
		return nil
	case <-time.After(100 * time.Millisecond):
		ap.droppedCount.Add(1)
		telemetry.DLQDroppedTotal.WithLabelValues("queue_full").Inc()
		logging.Warn("dlq message dropped, producer queue full", map[string]interface{}{
			"topic": topic,
			"key":   key,
		})
		return fmt.Errorf("async kafka producer queue full")
	case <-ctx.Done():
		return ctx.Err()
	case <-ap.ctx.Done():
		return fmt.Errorf("async kafka producer shutting down")
	}
}

func (ap *AsyncProducer) monitorErrors() {
	defer ap.wg.Done()
	for {
		select {
		case err := <-ap.producer.Errors():
			if err == nil {
				continue
			}
			ap.errorCount.Add(1)
			logging.Error("kafka async producer error", err.Err, map[string]interface{}{
				"topic":       err.Msg.Topic,
				"error_count": ap.errorCount.Load(),
			})
		case <-ap.ctx.Done():
			return
		}
	}
}

func (ap *AsyncProducer) Close() error {
	ap.mu.Lock()
	if ap.closed {
		ap.mu.Unlock()
		return nil
	}
	ap.closed = true
	ap.mu.Unlock()

	ap.cancel()
	err := ap.producer.Close()
	ap.wg.Wait()
	if err != nil {
		return fmt.Errorf("close kafka async producer: %w", err)
	}
	return nil
}
