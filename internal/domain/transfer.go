package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest is the normalized shape both ingress adapters (HTTP and
// bus consumer) build before invoking the Processor. It carries everything
// spec ss4.1 requires for the atomic critical section.
type TransferRequest struct {
	EventID        string
	TransactionID  string
	FromAccountID  string
	ToAccountID    string
	Amount         decimal.Decimal
	Currency       string
	Type           TransactionType
	Timestamp      time.Time
	IdempotencyKey string
}

// OutcomeKind classifies how a Process call resolved, independent of the
// Transaction's own terminal status - it's what the ingress adapters need to
// decide how to acknowledge (spec ss4.5, ss7).
type OutcomeKind string

const (
	// OutcomeCommitted is a brand-new Transaction committed by this call
	// (COMPLETED or FAILED - both are "durable", per spec ss7).
	OutcomeCommitted OutcomeKind = "COMMITTED"
	// OutcomeReplayed means an unexpired IdempotencyRecord already existed;
	// the cached response was returned unchanged, no state changed.
	OutcomeReplayed OutcomeKind = "REPLAYED"
)

// Outcome is what Process returns on every durable resolution. Malformed
// input and transient infrastructure failures never produce an Outcome -
// they surface as an error instead (spec ss7).
type Outcome struct {
	Kind        OutcomeKind
	Transaction Transaction
}
