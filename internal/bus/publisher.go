// Package bus defines the transport-agnostic boundary between the domain
// and the downstream message bus. Concrete transports (bus/kafka) and the
// bus-based ingress adapter (bus/consumer) live in subpackages.
package bus

import "context"

// Publisher is what the Outbox Relay and the DLQ router depend on. Kept
// minimal on purpose, mirroring the teacher's EventPublisher seam, so a
// fake can stand in for tests without pulling in Sarama.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// NoOp discards everything it's given. Useful for local runs and for the
// Relay's own unit tests where the store side is what's under test.
type NoOp struct{}

func (NoOp) Publish(ctx context.Context, topic string, key string, payload []byte) error { return nil }
func (NoOp) Close() error                                                                { return nil }
