package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the fixed number of fractional digits every amount in the
// ledger is stored and compared at. Amounts with more precision than this
// are rejected rather than silently rounded.
const MoneyScale int32 = 4

// ValidateAmount checks that amount is strictly positive and carries at most
// MoneyScale fractional digits as written. Trailing zeros count, so
// "10.10000" is rejected even though its value fits MoneyScale.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be strictly positive, got %s", amount.String())
	}
	if amount.Exponent() < -MoneyScale {
		return fmt.Errorf("amount %s has more than %d fractional digits", amount.String(), MoneyScale)
	}
	return nil
}

// NormalizeAmount rounds amount to MoneyScale. Called only after
// ValidateAmount has confirmed the value carries no extra precision, so this
// never changes the represented value - it only canonicalizes the internal
// decimal representation for storage.
func NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}
