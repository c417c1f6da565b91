package repository

import (
	"context"
	"testing"
	"time"

	"accrual/models"
	"accrual/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccountType(t *testing.T, ctx context.Context, repo *AccountTypeRepository, name, rate string, perYear int) *models.AccountType {
	t.Helper()
	accountType := testutil.CreateTestAccountType(name, rate, perYear)
	require.NoError(t, repo.Create(ctx, accountType))
	return accountType
}

func TestAccountRepository_GetEligibleForInterest(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	typeRepo := NewAccountTypeRepository(testDB.DB)
	repo := NewAccountRepository(testDB.DB)
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	savings := seedAccountType(t, ctx, typeRepo, "savings", "12", 12)

	eligible := testutil.CreateTestAccount(savings.ID, "1000", now)
	require.NoError(t, repo.Create(ctx, eligible))

	startsNow := testutil.CreateTestAccount(savings.ID, "10", now)
	startsNow.InterestStartDate = now
	require.NoError(t, repo.Create(ctx, startsNow))

	zero := testutil.CreateTestAccount(savings.ID, "0", now)
	require.NoError(t, repo.Create(ctx, zero))

	future := testutil.CreateTestAccount(savings.ID, "1000", now)
	future.InterestStartDate = now.Add(time.Second)
	require.NoError(t, repo.Create(ctx, future))

	unfunded := testutil.CreateTestAccount(savings.ID, "1000", now)
	unfunded.InitialDepositDate = nil
	require.NoError(t, repo.Create(ctx, unfunded))

	accounts, err := repo.GetEligibleForInterest(ctx, now)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, eligible.ID, accounts[0].ID)
	assert.Equal(t, startsNow.ID, accounts[1].ID)

	first := accounts[0]
	assert.True(t, first.Balance.Equal(decimal.NewFromInt(1000)))
	require.NotNil(t, first.AccountType)
	assert.Equal(t, savings.ID, first.AccountType.ID)
	assert.Equal(t, 12, first.AccountType.InterestCalculationPerYear)
	assert.True(t, first.AccountType.AnnualInterestRate.Equal(decimal.NewFromInt(12)))
	require.NotNil(t, first.InitialDepositDate)
	assert.True(t, first.InterestStartDate.Equal(eligible.InterestStartDate))
}

func TestAccountRepository_BulkUpdateBalances(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	typeRepo := NewAccountTypeRepository(testDB.DB)
	repo := NewAccountRepository(testDB.DB)
	now := time.Now().UTC()

	savings := seedAccountType(t, ctx, typeRepo, "savings", "12", 12)

	a := testutil.CreateTestAccount(savings.ID, "100.00", now)
	b := testutil.CreateTestAccount(savings.ID, "250.55", now)
	untouched := testutil.CreateTestAccount(savings.ID, "75.00", now)
	for _, acct := range []*models.Account{a, b, untouched} {
		require.NoError(t, repo.Create(ctx, acct))
	}

	t.Run("updates every listed account", func(t *testing.T) {
		err := repo.BulkUpdateBalances(ctx, []models.BalanceUpdate{
			{AccountID: a.ID, Balance: decimal.RequireFromString("101.00")},
			{AccountID: b.ID, Balance: decimal.RequireFromString("253.06")},
		})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "101.00", got.Balance.StringFixed(2))

		got, err = repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "253.06", got.Balance.StringFixed(2))

		got, err = repo.GetByID(ctx, untouched.ID)
		require.NoError(t, err)
		assert.Equal(t, "75.00", got.Balance.StringFixed(2))
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		require.NoError(t, repo.BulkUpdateBalances(ctx, nil))
	})

	t.Run("unknown account fails", func(t *testing.T) {
		err := repo.BulkUpdateBalances(ctx, []models.BalanceUpdate{
			{AccountID: a.ID, Balance: decimal.NewFromInt(1)},
			{AccountID: 999999, Balance: decimal.NewFromInt(1)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "affected 1 rows, expected 2")
	})
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	account, err := NewAccountRepository(testDB.DB).GetByID(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestAccountTypeRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewAccountTypeRepository(testDB.DB)

	quarterly := seedAccountType(t, ctx, repo, "quarterly", "8.50", 4)
	seedAccountType(t, ctx, repo, "annual", "3", 1)

	got, err := repo.GetByID(ctx, quarterly.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "quarterly", got.Name)
	assert.Equal(t, "8.50", got.AnnualInterestRate.StringFixed(2))
	assert.Equal(t, 4, got.InterestCalculationPerYear)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "annual", all[0].Name)

	missing, err := repo.GetByID(ctx, 123456)
	require.NoError(t, err)
	assert.Nil(t, missing)

	t.Run("rejects frequency outside one to twelve", func(t *testing.T) {
		err := repo.Create(ctx, testutil.CreateTestAccountType("broken", "5", 13))
		assert.Error(t, err)
	})
}
