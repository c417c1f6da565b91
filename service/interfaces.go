package service

import (
	"context"
	"time"

	"accrual/events"
	"accrual/models"

	"github.com/shopspring/decimal"
)

// AccountRepository defines the account queries used by the accrual job
type AccountRepository interface {
	// GetEligibleForInterest returns accounts with a positive balance, an
	// interest start date at or before now and a recorded initial deposit,
	// with their account type loaded, ordered by ID.
	GetEligibleForInterest(ctx context.Context, now time.Time) ([]*models.Account, error)

	// BulkUpdateBalances writes the balance column of every listed account in one statement
	BulkUpdateBalances(ctx context.Context, updates []models.BalanceUpdate) error
}

// TransactionRepository defines the interface for ledger entries
type TransactionRepository interface {
	// BulkCreate inserts all transactions in one statement
	BulkCreate(ctx context.Context, transactions []*models.Transaction) error

	// GetByAccount returns the most recent transactions for an account, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)
}

// AccrualRunRepository defines the interface for the run history
type AccrualRunRepository interface {
	Create(ctx context.Context, run *models.AccrualRun) error
	GetLatest(ctx context.Context) (*models.AccrualRun, error)
	GetByPeriod(ctx context.Context, period string) ([]*models.AccrualRun, error)
}

// InterestPolicy is the account-type contract consumed by the accrual job
type InterestPolicy interface {
	// AccrualMonths returns the months in which an account whose interest
	// started in startMonth is credited.
	AccrualMonths(startMonth time.Month) (models.MonthSet, error)

	// CalculateInterest must be deterministic and free of side effects
	CalculateInterest(balance decimal.Decimal) (decimal.Decimal, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// UnitOfWork scopes every repository to one database transaction
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events.
	// Calling it after Commit is a no-op.
	Rollback() error

	AccountRepository() AccountRepository
	TransactionRepository() TransactionRepository
	AccrualRunRepository() AccrualRunRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// MetricsRecorder receives accrual measurements
type MetricsRecorder interface {
	RecordAccountOutcome(status string)
	RecordInterestAccrued(amount decimal.Decimal)
	RecordRun(outcome string, duration time.Duration)
}

// Clock supplies the timestamp a run is evaluated at
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns the current UTC time
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })
