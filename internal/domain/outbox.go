package domain

import "time"

// OutboxStatus is the lifecycle of a durable downstream notification.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxPublished OutboxStatus = "PUBLISHED"
	OutboxFailed    OutboxStatus = "FAILED"
)

// EventTypeTransactionCompleted is the only event type the Relay emits
// today; kept as a named constant because the payload shape (a serialized
// Transaction) is part of the downstream contract.
const EventTypeTransactionCompleted = "TRANSACTION_COMPLETED"

// OutboxEvent is a store-resident queue row committed atomically with the
// Transaction it describes, later drained to the downstream bus by the
// Relay. Mutated only by the Relay.
type OutboxEvent struct {
	ID            string
	EventType     string
	AggregateID   string
	Payload       []byte
	Status        OutboxStatus
	CreatedAt     time.Time
	PublishedAt   *time.Time
	RetryCount    int
	LastError     string
}
