package processor

import (
	"transferengine/internal/apierrors"
	"transferengine/internal/domain"
)

// validateShape catches malformed input (spec ss7): missing fields, a
// non-positive amount, or more precision than the engine's scale supports.
// These never produce a Transaction row and are never cached - the caller
// should fix the request and retry.
func validateShape(req domain.TransferRequest) error {
	if req.TransactionID == "" || req.FromAccountID == "" || req.ToAccountID == "" || req.IdempotencyKey == "" {
		return apierrors.NewValidationError("missing required field")
	}
	if len(req.Currency) != 3 {
		return apierrors.NewValidationError("currency must be a 3-letter code")
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return apierrors.NewValidationError(err.Error())
	}
	return nil
}

// validateBusiness catches the deterministic business rejections of spec
// ss4.1 step 3: these DO produce a committed FAILED Transaction.
func validateBusiness(from, to *domain.Account, req domain.TransferRequest) error {
	if from.Status != domain.AccountActive {
		return apierrors.ErrAccountInactive
	}
	if to.Status != domain.AccountActive {
		return apierrors.ErrAccountInactive
	}
	if from.Currency != req.Currency || to.Currency != req.Currency {
		return apierrors.ErrCurrencyMismatch
	}
	if !from.CanDebit(req.Amount) {
		return apierrors.ErrInsufficientFunds
	}
	return nil
}
