package domain

import "time"

// IdempotencyRecord binds a client-supplied idempotency key to the
// Transaction it resolved to and a snapshot of the response returned to the
// caller. It is created in the same commit as the Transaction it describes.
type IdempotencyRecord struct {
	ID             string
	IdempotencyKey string
	TransactionID  string
	Response       []byte
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Expired reports whether the record should be treated as absent as of now.
// Expired records are not deleted synchronously (pruning is out of scope);
// callers must never assume a row is absent just because it is expired.
func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
