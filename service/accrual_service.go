package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accrual/events"
	"accrual/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ErrPersistence marks errors that rolled back an entire accrual run
var ErrPersistence = errors.New("accrual batch rolled back")

// ErrDryRun is returned by a unit of work whose Commit rolled back on purpose.
// Run reports such a batch as a dry run instead of a failure.
var ErrDryRun = errors.New("dry run: changes rolled back")

// PolicyResolver returns the interest policy governing an account
type PolicyResolver func(account *models.Account) (InterestPolicy, error)

// AccountTypePolicy resolves the account type loaded with the account
func AccountTypePolicy(account *models.Account) (InterestPolicy, error) {
	if account.AccountType == nil {
		return nil, models.ErrMissingAccountType
	}
	return account.AccountType, nil
}

// AccrualService applies periodic interest to every eligible account
type AccrualService struct {
	uowFactory UnitOfWorkFactory
	policyFor  PolicyResolver
	metrics    MetricsRecorder
}

// Option configures an AccrualService
type Option func(*AccrualService)

// WithMetrics records run and account measurements on m
func WithMetrics(m MetricsRecorder) Option {
	return func(s *AccrualService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPolicyResolver overrides how an account's interest policy is found
func WithPolicyResolver(r PolicyResolver) Option {
	return func(s *AccrualService) {
		if r != nil {
			s.policyFor = r
		}
	}
}

// NewAccrualService creates a new accrual service
func NewAccrualService(uowFactory UnitOfWorkFactory, opts ...Option) *AccrualService {
	s := &AccrualService{
		uowFactory: uowFactory,
		policyFor:  AccountTypePolicy,
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stagedBatch holds the writes of one run until they are flushed together
type stagedBatch struct {
	transactions []*models.Transaction
	updates      []models.BalanceUpdate
}

// Run evaluates every eligible account as of now and commits all resulting
// transactions and balance updates atomically.
//
// A failure computing one account is recorded in the report and does not stop
// the run. A storage failure rolls back the whole batch; the report is still
// returned with Committed set to false.
//
// Run is not idempotent: calling it twice for the same period credits interest twice.
func (s *AccrualService) Run(ctx context.Context, now time.Time) (*AccrualReport, error) {
	started := time.Now()
	report := &AccrualReport{
		RunAt:         now,
		Period:        models.PeriodOf(now),
		TotalInterest: decimal.Zero,
	}

	err := s.run(ctx, now, report)
	report.Duration = time.Since(started)

	if err != nil {
		s.metrics.RecordRun("failed", report.Duration)
		log.WithFields(log.Fields{
			"period": report.Period,
			"error":  err,
		}).Error("Interest accrual run rolled back")
		return report, err
	}

	if report.DryRun {
		s.metrics.RecordRun("dry_run", report.Duration)
		log.WithFields(log.Fields{
			"period":         report.Period,
			"evaluated":      len(report.Results),
			"accrued":        len(report.Accrued()),
			"total_interest": report.TotalInterest.StringFixed(2),
		}).Info("Interest accrual dry run rolled back")
		return report, nil
	}

	s.metrics.RecordRun("committed", report.Duration)
	log.WithFields(log.Fields{
		"run_id":         report.RunID,
		"period":         report.Period,
		"evaluated":      len(report.Results),
		"accrued":        len(report.Accrued()),
		"skipped":        len(report.Skipped()),
		"failed":         len(report.Failed()),
		"total_interest": report.TotalInterest.StringFixed(2),
		"duration_ms":    report.Duration.Milliseconds(),
	}).Info("Interest accrual run committed")

	return report, nil
}

func (s *AccrualService) run(ctx context.Context, now time.Time, report *AccrualReport) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().GetEligibleForInterest(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to get eligible accounts: %w", err)
	}

	// Evaluated once so every account in the run sees the same month
	month := now.UTC().Month()

	var batch stagedBatch
	for _, account := range accounts {
		result := s.evaluate(account, month)
		report.add(result)
		s.metrics.RecordAccountOutcome(string(result.Status))

		switch result.Status {
		case AccountStatusFailed:
			log.WithFields(log.Fields{
				"account_id": account.ID,
				"error":      result.Err,
			}).Error("Failed to compute interest for account")
			continue
		case AccountStatusSkipped:
			continue
		}

		account.Balance = result.BalanceAfter
		batch.transactions = append(batch.transactions, &models.Transaction{
			AccountID:       account.ID,
			TransactionType: models.TransactionTypeInterest,
			Amount:          result.Interest,
			BalanceAfter:    result.BalanceAfter,
		})
		batch.updates = append(batch.updates, models.BalanceUpdate{
			AccountID: account.ID,
			Balance:   result.BalanceAfter,
		})
	}

	if err := s.flush(ctx, uow, batch); err != nil {
		return err
	}

	run := &models.AccrualRun{
		RunAt:             now,
		Period:            report.Period,
		TotalInterest:     report.TotalInterest,
		AccountsEvaluated: len(report.Results),
		AccountsAccrued:   len(report.Accrued()),
		AccountsSkipped:   len(report.Skipped()),
		AccountsFailed:    len(report.Failed()),
		ExecutionSummary:  report.Summary(),
	}
	if err := uow.AccrualRunRepository().Create(ctx, run); err != nil {
		return fmt.Errorf("%w: failed to record accrual run: %w", ErrPersistence, err)
	}

	s.publishEvents(uow.EventBus(), report, run)

	if err := uow.Commit(); err != nil {
		if errors.Is(err, ErrDryRun) {
			report.DryRun = true
			return nil
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	report.RunID = run.ID
	report.Committed = true
	for _, res := range report.Accrued() {
		s.metrics.RecordInterestAccrued(res.Interest)
	}
	return nil
}

// flush writes the staged transactions, then the staged balances
func (s *AccrualService) flush(ctx context.Context, uow UnitOfWork, batch stagedBatch) error {
	if len(batch.transactions) > 0 {
		if err := uow.TransactionRepository().BulkCreate(ctx, batch.transactions); err != nil {
			return fmt.Errorf("%w: failed to insert %d interest transactions: %w",
				ErrPersistence, len(batch.transactions), err)
		}
	}

	if len(batch.updates) > 0 {
		if err := uow.AccountRepository().BulkUpdateBalances(ctx, batch.updates); err != nil {
			return fmt.Errorf("%w: failed to update %d account balances: %w",
				ErrPersistence, len(batch.updates), err)
		}
	}

	return nil
}

// evaluate decides the outcome for one account. Errors and panics raised by
// the policy are turned into a failed result.
func (s *AccrualService) evaluate(account *models.Account, month time.Month) (result AccountResult) {
	result = AccountResult{
		AccountID:     account.ID,
		BalanceBefore: account.Balance,
		Interest:      decimal.Zero,
		BalanceAfter:  account.Balance,
	}

	fail := func(err error) AccountResult {
		result.Status = AccountStatusFailed
		result.Err = err
		result.Reason = err.Error()
		result.Interest = decimal.Zero
		result.BalanceAfter = account.Balance
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result = fail(fmt.Errorf("panic computing interest: %v", r))
		}
	}()

	policy, err := s.policyFor(account)
	if err != nil {
		return fail(err)
	}

	months, err := policy.AccrualMonths(account.InterestStartDate.UTC().Month())
	if err != nil {
		return fail(fmt.Errorf("failed to get accrual months: %w", err))
	}
	if !months.Contains(month) {
		result.Status = AccountStatusSkipped
		result.Reason = skipReasonNotAccrualMonth
		return result
	}

	interest, err := policy.CalculateInterest(account.Balance)
	if err != nil {
		return fail(fmt.Errorf("failed to calculate interest: %w", err))
	}
	if interest.IsNegative() {
		return fail(fmt.Errorf("policy returned negative interest %s", interest))
	}

	result.Status = AccountStatusAccrued
	result.Interest = interest
	result.BalanceAfter = account.Balance.Add(interest)
	return result
}

func (s *AccrualService) publishEvents(bus EventPublisher, report *AccrualReport, run *models.AccrualRun) {
	for _, res := range report.Accrued() {
		if err := bus.Publish(events.InterestAccruedEvent{
			AccountID:  res.AccountID,
			Amount:     res.Interest,
			OldBalance: res.BalanceBefore,
			NewBalance: res.BalanceAfter,
			Period:     report.Period,
			AccruedAt:  report.RunAt,
		}); err != nil {
			log.WithError(err).Warn("Failed to queue interest accrued event")
		}
	}

	if err := bus.Publish(events.AccrualRunCompletedEvent{
		RunID:             run.ID,
		Period:            run.Period,
		RunAt:             run.RunAt,
		TotalInterest:     run.TotalInterest,
		AccountsEvaluated: run.AccountsEvaluated,
		AccountsAccrued:   run.AccountsAccrued,
		AccountsSkipped:   run.AccountsSkipped,
		AccountsFailed:    run.AccountsFailed,
	}); err != nil {
		log.WithError(err).Warn("Failed to queue accrual run completed event")
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordAccountOutcome(string)           {}
func (noopMetrics) RecordInterestAccrued(decimal.Decimal) {}
func (noopMetrics) RecordRun(string, time.Duration)       {}
