package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"accrual/events"
	"accrual/models"
	"accrual/repository/memory"
	"accrual/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPublisher struct {
	count int
}

func (p *countingPublisher) Publish(events.Event) error {
	p.count++
	return nil
}

type runOutcomes struct {
	mu       sync.Mutex
	runs     []string
	interest int
}

func (r *runOutcomes) RecordAccountOutcome(string) {}

func (r *runOutcomes) RecordInterestAccrued(decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interest++
}

func (r *runOutcomes) RecordRun(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, outcome)
}

func TestDryRunUnitOfWorkFactory_LeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 2, 0, 0, 0, time.UTC)

	publisher := &countingPublisher{}
	store := memory.NewStore(publisher)
	accountType := store.AddAccountType(models.AccountType{
		Name:                       "monthly savings",
		AnnualInterestRate:         decimal.NewFromInt(12),
		InterestCalculationPerYear: 12,
	})
	deposit := now.AddDate(0, -2, 0)
	account := store.AddAccount(models.Account{
		Name:               "dry run",
		AccountTypeID:      accountType.ID,
		Balance:            decimal.NewFromInt(1000),
		InterestStartDate:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		InitialDepositDate: &deposit,
	})

	metrics := &runOutcomes{}
	svc := service.NewAccrualService(NewDryRunUnitOfWorkFactory(store), service.WithMetrics(metrics))
	report, err := svc.Run(ctx, now)
	require.NoError(t, err)

	require.Len(t, report.Accrued(), 1)
	assert.True(t, report.TotalInterest.Equal(decimal.NewFromInt(10)))
	assert.True(t, report.DryRun)
	assert.False(t, report.Committed)
	assert.Zero(t, report.RunID)

	assert.Equal(t, []string{"dry_run"}, metrics.runs)
	assert.Zero(t, metrics.interest)

	stored, ok := store.Account(account.ID)
	require.True(t, ok)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(1000)), "balance must not change in a dry run")
	assert.Zero(t, store.TransactionCount())
	assert.Empty(t, store.Runs())
	assert.Zero(t, publisher.count, "events must be discarded in a dry run")
}
