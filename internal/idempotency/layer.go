// Package idempotency implements the deduplication gate described in spec
// ss4.2: peek returns a cached response for a key that has already resolved,
// bind (performed by the caller inside the same store transaction that wrote
// the Transaction) records a new one.
//
// This is deliberately thin - the store is the source of truth and the only
// thing that can atomically couple an idempotency record to the Transaction
// it describes, so this package does not cache anything itself (spec ss4.2,
// "Why database-backed, not in-memory").
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"transferengine/internal/domain"
	"transferengine/internal/store"
)

// Layer wraps a store.Store with the expiry semantics spec ss4.2 requires.
type Layer struct {
	store  store.Store
	window time.Duration
}

func New(s store.Store, window time.Duration) *Layer {
	return &Layer{store: s, window: window}
}

// Peek returns the cached Transaction for key, or (nil, nil) if no
// unexpired record exists. An expired record is treated as absent, not
// deleted - pruning is an external, out-of-scope janitor (spec ss4.2).
func (l *Layer) Peek(ctx context.Context, key string, now time.Time) (*domain.Transaction, error) {
	rec, err := l.store.PeekIdempotency(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("peek idempotency record: %w", err)
	}
	if rec.Expired(now) {
		return nil, nil
	}

	var cached domain.Transaction
	if err := json.Unmarshal(rec.Response, &cached); err != nil {
		return nil, fmt.Errorf("decode cached response for key %s: %w", key, err)
	}
	return &cached, nil
}

// NewRecord builds the IdempotencyRecord to insert inside the same
// transaction that commits txn. The response snapshot is the Transaction
// itself, JSON-encoded the same way the ingress response is (spec ss6).
func NewRecord(key string, txn *domain.Transaction, now time.Time, window time.Duration) (*domain.IdempotencyRecord, error) {
	payload, err := json.Marshal(txn)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency response: %w", err)
	}
	return &domain.IdempotencyRecord{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		TransactionID:  txn.ID,
		Response:       payload,
		CreatedAt:      now,
		ExpiresAt:      now.Add(window),
	}, nil
}
