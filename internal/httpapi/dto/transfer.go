// Package dto holds the wire shapes for the HTTP ingress adapter (spec ss6).
// gin's ShouldBindJSON drives go-playground/validator/v10 against the
// `binding` tags below - promoted from an indirect dependency (it already
// ships inside gin) to a directly exercised one.
package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest is the ingress request body.
type TransferRequest struct {
	EventID        string          `json:"eventId" binding:"required"`
	TransactionID  string          `json:"transactionId" binding:"required"`
	FromAccountID  string          `json:"fromAccountId" binding:"required"`
	ToAccountID    string          `json:"toAccountId" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Currency       string          `json:"currency" binding:"required,len=3"`
	Type           string          `json:"type" binding:"required,oneof=PAYMENT TRANSFER REFUND WITHDRAWAL"`
	Timestamp      time.Time       `json:"timestamp" binding:"required"`
	IdempotencyKey string          `json:"idempotencyKey" binding:"required"`
}

// TransactionResponse is the ingress response body: the committed
// Transaction, JSON-shaped per spec ss6.
type TransactionResponse struct {
	TransactionID  string          `json:"transactionId"`
	IdempotencyKey string          `json:"idempotencyKey"`
	FromAccountID  string          `json:"fromAccountId"`
	ToAccountID    string          `json:"toAccountId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	FailureReason  *string         `json:"failureReason,omitempty"`
	CreatedAt      string          `json:"createdAt"`
	CompletedAt    *string         `json:"completedAt,omitempty"`
}
