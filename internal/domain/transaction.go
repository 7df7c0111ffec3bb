package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType mirrors the ingress request's "type" field.
type TransactionType string

const (
	TransactionPayment    TransactionType = "PAYMENT"
	TransactionTransfer   TransactionType = "TRANSFER"
	TransactionRefund     TransactionType = "REFUND"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// TransactionStatus is terminal once written: a Transaction row is created
// once per admitted request and its status is set in the same commit that
// creates the row. It is never mutated afterwards.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// Transaction is the durable record of one admitted transfer request,
// successful or not.
type Transaction struct {
	ID             string
	IdempotencyKey string
	FromAccountID  string
	ToAccountID    string
	Amount         decimal.Decimal
	Currency       string
	Type           TransactionType
	Status         TransactionStatus
	FailureReason  string
	CreatedAt      time.Time
	CompletedAt    *time.Time
	Version        int64
}
