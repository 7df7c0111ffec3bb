package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an Account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
)

// Account is a balance-holding entity. Accounts are provisioned out of band
// (account administration is out of scope for this engine, per spec ss1) and
// are only ever mutated by the Transaction Processor under a row-level write
// lock; they are never destroyed, only soft-closed via Status.
type Account struct {
	ID        string
	Name      string
	Balance   decimal.Decimal
	Currency  string
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// CanDebit reports whether amount can be withdrawn from the account without
// violating the balance >= 0 invariant. It does not mutate the account.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
