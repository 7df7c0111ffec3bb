package processor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"transferengine/internal/apierrors"
	"transferengine/internal/domain"
)

func TestValidateShapeRejectsMissingFields(t *testing.T) {
	req := domain.TransferRequest{Currency: "USD", Amount: decimal.RequireFromString("10")}
	err := validateShape(req)
	assert.Error(t, err)
}

func TestValidateShapeRejectsBadCurrency(t *testing.T) {
	req := validReq()
	req.Currency = "US"
	assert.Error(t, validateShape(req))
}

func TestValidateShapeAcceptsWellFormedRequest(t *testing.T) {
	assert.NoError(t, validateShape(validReq()))
}

func TestValidateBusinessRejectsInactiveAccount(t *testing.T) {
	from := &domain.Account{Status: domain.AccountSuspended, Currency: "USD", Balance: decimal.RequireFromString("100")}
	to := &domain.Account{Status: domain.AccountActive, Currency: "USD", Balance: decimal.RequireFromString("0")}
	err := validateBusiness(from, to, validReq())
	assert.ErrorIs(t, err, apierrors.ErrAccountInactive)
}

func TestValidateBusinessRejectsCurrencyMismatch(t *testing.T) {
	from := &domain.Account{Status: domain.AccountActive, Currency: "EUR", Balance: decimal.RequireFromString("100")}
	to := &domain.Account{Status: domain.AccountActive, Currency: "USD", Balance: decimal.RequireFromString("0")}
	err := validateBusiness(from, to, validReq())
	assert.ErrorIs(t, err, apierrors.ErrCurrencyMismatch)
}

func TestValidateBusinessRejectsInsufficientFunds(t *testing.T) {
	from := &domain.Account{Status: domain.AccountActive, Currency: "USD", Balance: decimal.RequireFromString("1")}
	to := &domain.Account{Status: domain.AccountActive, Currency: "USD", Balance: decimal.RequireFromString("0")}
	err := validateBusiness(from, to, validReq())
	assert.ErrorIs(t, err, apierrors.ErrInsufficientFunds)
}

func validReq() domain.TransferRequest {
	return domain.TransferRequest{
		TransactionID:  "txn-1",
		FromAccountID:  "acc-a",
		ToAccountID:    "acc-b",
		Amount:         decimal.RequireFromString("25.0000"),
		Currency:       "USD",
		Type:           domain.TransactionTransfer,
		IdempotencyKey: "key-1",
	}
}
