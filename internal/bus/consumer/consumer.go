// Package consumer implements the bus ingress adapter (spec ss4.5): a Sarama
// consumer group that feeds the Transaction Processor and acknowledges the
// ingress offset only once the Processor's outcome is durable.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"transferengine/internal/apierrors"
	"transferengine/internal/bus"
	"transferengine/internal/domain"
	"transferengine/internal/pkg/logging"
	"transferengine/internal/pkg/telemetry"
)

// Processor is the subset of processor.Processor the consumer depends on.
type Processor interface {
	Process(ctx context.Context, req domain.TransferRequest) (domain.Outcome, error)
}

// Consumer subscribes to the ingress topic and drives the Processor,
// following the teacher's DepositConsumer: an infinite Consume loop that
// re-enters on every rebalance, plus a side goroutine draining the error
// channel.
type Consumer struct {
	group     sarama.ConsumerGroup
	processor Processor
	dlq       bus.Publisher
	topic     string
	dlqTopic  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(brokers []string, saramaCfg *sarama.Config, consumerGroup string, ingressTopic, dlqTopic string, processor Processor, dlq bus.Publisher) (*Consumer, error) {
	saramaCfg.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Offsets.AutoCommit.Enable = false

	group, err := sarama.NewConsumerGroup(brokers, consumerGroup, saramaCfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		group:     group,
		processor: processor,
		dlq:       dlq,
		topic:     ingressTopic,
		dlqTopic:  dlqTopic,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (c *Consumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		handler := &groupHandler{consumer: c}
		for {
			if err := c.group.Consume(c.ctx, []string{c.topic}, handler); err != nil {
				logging.Error("bus consumer session ended", err, map[string]interface{}{"topic": c.topic})
			}
			if c.ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case err, ok := <-c.group.Errors():
				if !ok {
					return
				}
				logging.Error("bus consumer group error", err, nil)
			case <-c.ctx.Done():
				return
			}
		}
	}()

	logging.Info("bus consumer started", map[string]interface{}{"topic": c.topic})
}

func (c *Consumer) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.group.Close()
}

type groupHandler struct {
	consumer *Consumer
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg := <-claim.Messages():
			if msg == nil {
				return nil
			}
			if h.consumer.handle(session.Context(), msg) {
				session.MarkMessage(msg, "")
				session.Commit() // auto-commit is disabled in New
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle implements spec ss4.5's acknowledgement rule: it reports whether
// the outcome is durable (success, cached duplicate, or a committed FAILED
// Transaction) or the record is poison and a DLQ publish has been attempted -
// the only two cases ConsumeClaim marks the offset for. A poison record is
// marked even when that DLQ publish fails (routeToDLQ logs and drops it).
// A transient error returns
// false, leaving the message unmarked so Sarama redelivers it.
func (h *groupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	var req domain.TransferRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.routeToDLQ(ctx, msg, "unparseable")
		return true
	}

	outcome, err := h.consumer.processor.Process(ctx, req)
	if err == nil {
		logging.Debug("bus message processed", map[string]interface{}{
			"transaction_id": outcome.Transaction.ID,
			"outcome":        string(outcome.Kind),
		})
		return true
	}

	if isTerminal(err) {
		h.routeToDLQ(ctx, msg, terminalReason(err))
		return true
	}

	logging.Warn("bus message left unacknowledged after transient failure", map[string]interface{}{
		"error": err.Error(),
	})
	return false
}

func (h *groupHandler) routeToDLQ(ctx context.Context, msg *sarama.ConsumerMessage, reason string) {
	dlqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.consumer.dlq.Publish(dlqCtx, h.consumer.dlqTopic, string(msg.Key), msg.Value); err != nil {
		logging.Warn("dlq routing failed, dropping record", map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
		return
	}
	telemetry.DLQRoutedTotal.WithLabelValues(reason).Inc()
}

// isTerminal reports the cases spec ss4.5 calls "rejected with a terminal
// classification": malformed input, which never even reaches validateBusiness,
// and a caller contract violation (same transaction id, different
// idempotency key). Business rejections are not errors from Process - they
// come back as a committed FAILED Transaction with a nil error - so they
// never reach this function.
func isTerminal(err error) bool {
	var apiErr apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == apierrors.CodeValidation
	}
	return errors.Is(err, apierrors.ErrIdempotencyKeyConflict)
}

func terminalReason(err error) string {
	if errors.Is(err, apierrors.ErrIdempotencyKeyConflict) {
		return "idempotency_key_conflict"
	}
	var apiErr apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "unknown"
}
