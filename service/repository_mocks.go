package service

import (
	"context"
	"time"

	"accrual/events"
	"accrual/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetEligibleForInterest(ctx context.Context, now time.Time) ([]*models.Account, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) BulkUpdateBalances(ctx context.Context, updates []models.BalanceUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) BulkCreate(ctx context.Context, transactions []*models.Transaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockAccrualRunRepository is a mock implementation of AccrualRunRepository
type MockAccrualRunRepository struct {
	mock.Mock
}

func (m *MockAccrualRunRepository) Create(ctx context.Context, run *models.AccrualRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockAccrualRunRepository) GetLatest(ctx context.Context) (*models.AccrualRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccrualRun), args.Error(1)
}

func (m *MockAccrualRunRepository) GetByPeriod(ctx context.Context, period string) ([]*models.AccrualRun, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AccrualRun), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	accrualRunRepo  AccrualRunRepository
	eventBus        EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(accounts AccountRepository, transactions TransactionRepository, runs AccrualRunRepository, bus EventPublisher) {
	m.accountRepo = accounts
	m.transactionRepo = transactions
	m.accrualRunRepo = runs
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository         { return m.accountRepo }
func (m *MockUnitOfWork) TransactionRepository() TransactionRepository { return m.transactionRepo }
func (m *MockUnitOfWork) AccrualRunRepository() AccrualRunRepository   { return m.accrualRunRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                     { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockInterestPolicy is a mock implementation of InterestPolicy
type MockInterestPolicy struct {
	mock.Mock
}

func (m *MockInterestPolicy) AccrualMonths(startMonth time.Month) (models.MonthSet, error) {
	args := m.Called(startMonth)
	return args.Get(0).(models.MonthSet), args.Error(1)
}

func (m *MockInterestPolicy) CalculateInterest(balance decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(balance)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockMetricsRecorder is a mock implementation of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordAccountOutcome(status string) {
	m.Called(status)
}

func (m *MockMetricsRecorder) RecordInterestAccrued(amount decimal.Decimal) {
	m.Called(amount)
}

func (m *MockMetricsRecorder) RecordRun(outcome string, duration time.Duration) {
	m.Called(outcome, duration)
}
