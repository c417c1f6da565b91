package application

import (
	"context"
	"errors"
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

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type workerFixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	account   models.Account
	now       time.Time
	worker    *AccrualWorker
}

func newWorkerFixture(t *testing.T, now time.Time) *workerFixture {
	t.Helper()

	publisher := &recordingPublisher{}
	store := memory.NewStore(publisher)
	accountType := store.AddAccountType(models.AccountType{
		Name:                       "monthly savings",
		AnnualInterestRate:         decimal.NewFromInt(12),
		InterestCalculationPerYear: 12,
	})
	deposit := now.AddDate(0, -3, 0)
	account := store.AddAccount(models.Account{
		Name:               "worker",
		AccountTypeID:      accountType.ID,
		Balance:            decimal.NewFromInt(1000),
		InterestStartDate:  time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC),
		InitialDepositDate: &deposit,
	})

	clock := service.ClockFunc(func() time.Time { return now })
	task := service.NewAccrualTask(service.NewAccrualService(store), clock)

	return &workerFixture{
		store:     store,
		publisher: publisher,
		account:   account,
		now:       now,
		worker:    NewAccrualWorker(store, task, publisher, clock, 2),
	}
}

func (f *workerFixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	a, ok := f.store.Account(f.account.ID)
	require.True(t, ok)
	return a.Balance
}

func TestNextRunAfter(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the hour rolls to tomorrow",
			now:  time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "end of month",
			now:  time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input",
			now:  time.Date(2024, 3, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600)),
			hour: 2,
			want: time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextRunAfter(tt.now, tt.hour))
		})
	}
}

func TestAccrualWorker_RunIfDue_OncePerPeriod(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, time.Date(2024, time.March, 1, 2, 0, 0, 0, time.UTC))

	ran, err := f.worker.RunIfDue(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1010)))

	ran, err = f.worker.RunIfDue(ctx)
	require.NoError(t, err)
	assert.False(t, ran, "second check in the same period must not run the task")
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1010)))
	assert.Len(t, f.store.Runs(), 1)
}

func TestAccrualWorker_RunIfDue_PublishesFailure(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, time.Date(2024, time.March, 1, 2, 0, 0, 0, time.UTC))
	f.store.InjectFailures(memory.Failures{BulkUpdateBalances: errors.New("disk full")})

	ran, err := f.worker.RunIfDue(ctx)
	require.Error(t, err)
	assert.True(t, ran)
	assert.ErrorIs(t, err, service.ErrPersistence)

	failed := f.publisher.ofType(events.EventTypeAccrualRunFailed)
	require.Len(t, failed, 1)
	event := failed[0].(events.AccrualRunFailedEvent)
	assert.Equal(t, "2024-03", event.Period)
	assert.Contains(t, event.Error, "disk full")

	assert.Empty(t, f.publisher.ofType(events.EventTypeInterestAccrued))
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1000)))

	// A failed run leaves the period open for the next check
	f.store.InjectFailures(memory.Failures{})
	ran, err = f.worker.RunIfDue(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1010)))
}

func TestAccrualWorker_StartCatchesUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newWorkerFixture(t, time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC))

	stop := f.worker.Start(ctx)
	defer stop()

	assert.Eventually(t, func() bool {
		return len(f.store.Runs()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(1010)))
}
