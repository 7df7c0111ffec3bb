// Package store defines the transactional contract the Transaction
// Processor, Idempotency Layer, and Outbox Relay are built against. The only
// implementation is store/postgres, but the interface keeps those three
// components testable against a fake without dragging in pgx.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"transferengine/internal/domain"
)

// Sentinel errors a Store implementation must map its driver-specific
// failures onto, so callers branch with errors.Is and never inspect driver
// error codes directly.
var (
	// ErrNotFound is returned by lookups that find nothing - not using a
	// business-rejection sentinel here because "not found" is a store-level
	// fact; the Processor is the one that decides it means ErrAccountNotFound.
	ErrNotFound = errors.New("store: not found")

	// ErrUniqueViolation is returned by inserts that collide with a unique
	// index (transactions.idempotency_key, idempotency_records.idempotency_key).
	ErrUniqueViolation = errors.New("store: unique constraint violation")

	// ErrSerializationFailure covers both serializable-isolation aborts and
	// deadlock detection aborts - spec ss4.1 treats them as one retryable class.
	ErrSerializationFailure = errors.New("store: serialization or deadlock conflict")

	// ErrVersionConflict is the optimistic-check failure class, retried the
	// same way as ErrSerializationFailure (spec ss4.1).
	ErrVersionConflict = errors.New("store: optimistic version conflict")
)

// Tx is the set of operations available inside one write transaction, scoped
// to the two accounts a transfer touches.
type Tx interface {
	// LockAccount acquires a row-level write lock (SELECT ... FOR UPDATE) on
	// the account and returns its current state. Callers must lock accounts
	// in ascending ID order to avoid deadlocks (spec ss4.1, ss9).
	LockAccount(ctx context.Context, id string) (*domain.Account, error)

	// UpdateAccountBalance writes a new balance, enforcing expectedVersion
	// via an optimistic check (WHERE version = expectedVersion) in addition
	// to the row lock already held - belt-and-suspenders against any future
	// code path that updates an account outside LockAccount.
	UpdateAccountBalance(ctx context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) error

	// FindTransactionByID supports the "transactionId pre-exists under a
	// different idempotency key" contract-violation check (spec ss4.1).
	FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)

	// InsertTransaction returns ErrUniqueViolation if a row with the same
	// idempotency_key already exists.
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error

	// InsertIdempotencyRecord returns ErrUniqueViolation on key collision -
	// the signal that a concurrent admission already won the race (spec ss4.2).
	InsertIdempotencyRecord(ctx context.Context, rec *domain.IdempotencyRecord) error

	InsertOutboxEvent(ctx context.Context, ev *domain.OutboxEvent) error
}

// Store is the top-level transactional handle. WithTx opens one store-side
// transaction with serializable-or-stronger isolation, as spec ss4.1 step 2
// requires, and commits iff fn returns nil.
type Store interface {
	// PeekIdempotency is the read-only short-circuit of spec ss4.1 step 1:
	// it must not touch any other table and runs outside the write-locking
	// critical section. Returns ErrNotFound if no record exists for key.
	PeekIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error)

	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// FetchPendingOutbox returns up to limit oldest PENDING rows, the FIFO
	// drain order spec ss4.3 requires.
	FetchPendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error)

	MarkOutboxPublished(ctx context.Context, id string, publishedAt time.Time) error

	// MarkOutboxFailed records a publish failure. terminal=true moves the
	// row to FAILED (operator intervention required); terminal=false leaves
	// it PENDING for the next poll.
	MarkOutboxFailed(ctx context.Context, id string, retryCount int, lastErr string, terminal bool) error

	Ping(ctx context.Context) error
	Close()
}
