package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of ledger entry
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeInterest TransactionType = "interest_accrual"
)

// Transaction is an immutable ledger entry against an account
type Transaction struct {
	ID              int64           `db:"id"`
	AccountID       int64           `db:"account_id"`
	TransactionType TransactionType `db:"transaction_type"`
	Amount          decimal.Decimal `db:"amount"`
	BalanceAfter    decimal.Decimal `db:"balance_after_transaction"`
	CreatedAt       time.Time       `db:"created_at"`
}

// BalanceUpdate sets an account's balance to an absolute value
type BalanceUpdate struct {
	AccountID int64
	Balance   decimal.Decimal
}
