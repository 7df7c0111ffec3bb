// Package outbox implements the Outbox Relay (spec ss4.3): a background
// worker that drains PENDING outbox_events rows FIFO and publishes each to
// the downstream bus, marking the row PUBLISHED only after a successful
// publish - at-least-once delivery, never at-most-once.
package outbox

import (
	"context"
	"sync"
	"time"

	"transferengine/internal/bus"
	"transferengine/internal/config"
	"transferengine/internal/domain"
	"transferengine/internal/pkg/logging"
	"transferengine/internal/pkg/telemetry"
	"transferengine/internal/store"
)

// Relay polls store.Store on a fixed interval, grounded on the teacher's
// reconciliation-worker scheduling (internal/server server loop periodic
// goroutines) but built around the four-table outbox contract this engine
// adds.
type Relay struct {
	store     store.Store
	publisher bus.Publisher
	topic     string
	cfg       config.OutboxConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(s store.Store, publisher bus.Publisher, ledgerTopic string, cfg config.OutboxConfig) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		store:     s,
		publisher: publisher,
		topic:     ledgerTopic,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start runs the poll loop as a managed background goroutine.
func (r *Relay) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.PollInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Poll(r.ctx)
			case <-r.ctx.Done():
				return
			}
		}
	}()

	logging.Info("outbox relay started", map[string]interface{}{
		"poll_interval_ms": r.cfg.PollingIntervalMS,
		"batch_size":       r.cfg.BatchSize,
	})
}

func (r *Relay) Stop() {
	r.cancel()
	r.wg.Wait()
	logging.Info("outbox relay stopped", nil)
}

// Poll runs one fetch-and-publish pass. Exported so tests can drive the
// Relay deterministically instead of waiting on the ticker.
func (r *Relay) Poll(ctx context.Context) {
	events, err := r.store.FetchPendingOutbox(ctx, r.cfg.BatchSize)
	if err != nil {
		logging.Error("outbox relay fetch failed", err, nil)
		return
	}
	if len(events) == 0 {
		telemetry.OutboxRelayLagSeconds.Set(0)
		return
	}

	telemetry.OutboxRelayLagSeconds.Set(time.Since(events[0].CreatedAt).Seconds())

	for _, ev := range events {
		r.publishOne(ctx, ev)
	}
}

func (r *Relay) publishOne(ctx context.Context, ev domain.OutboxEvent) {
	err := r.publisher.Publish(ctx, r.topic, ev.AggregateID, ev.Payload)
	if err == nil {
		if markErr := r.store.MarkOutboxPublished(ctx, ev.ID, time.Now()); markErr != nil {
			logging.Error("outbox relay failed to mark published", markErr, map[string]interface{}{"event_id": ev.ID})
		}
		telemetry.OutboxPublished.Inc()
		return
	}

	retryCount := ev.RetryCount + 1
	terminal := retryCount >= r.cfg.MaxRetries
	telemetry.OutboxPublishErrors.WithLabelValues(boolLabel(terminal)).Inc()

	logging.Warn("outbox relay publish failed", map[string]interface{}{
		"event_id":    ev.ID,
		"retry_count": retryCount,
		"terminal":    terminal,
		"error":       err.Error(),
	})

	if markErr := r.store.MarkOutboxFailed(ctx, ev.ID, retryCount, err.Error(), terminal); markErr != nil {
		logging.Error("outbox relay failed to record publish failure", markErr, map[string]interface{}{"event_id": ev.ID})
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
