package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a customer bank account that can earn interest
type Account struct {
	ID                 int64           `db:"id"`
	Name               string          `db:"name"`
	AccountTypeID      int64           `db:"account_type_id"`
	Balance            decimal.Decimal `db:"balance"`
	InterestStartDate  time.Time       `db:"interest_start_date"`
	InitialDepositDate *time.Time      `db:"initial_deposit_date"` // nil until the first deposit
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`

	// AccountType is loaded together with the account by the accrual query
	AccountType *AccountType `db:"-"`
}

// IsEligibleForInterest reports whether the account is funded, has a positive
// balance and has reached its interest start date as of now.
func (a *Account) IsEligibleForInterest(now time.Time) bool {
	return a.Balance.IsPositive() &&
		!a.InterestStartDate.After(now) &&
		a.InitialDepositDate != nil
}
