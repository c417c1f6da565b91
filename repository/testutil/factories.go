package testutil

import (
	"time"

	"accrual/models"

	"github.com/shopspring/decimal"
)

// CreateTestAccountType returns an unsaved account type accruing at rate percent
// per year, perYear times a year.
func CreateTestAccountType(name string, rate string, perYear int) *models.AccountType {
	return &models.AccountType{
		Name:                       name,
		MaximumWithdrawalAmount:    decimal.NewFromInt(5000),
		AnnualInterestRate:         decimal.RequireFromString(rate),
		InterestCalculationPerYear: perYear,
	}
}

// CreateTestAccount returns an unsaved, funded account whose interest started a year before now
func CreateTestAccount(accountTypeID int64, balance string, now time.Time) *models.Account {
	deposit := now.AddDate(-1, 0, -1)
	return &models.Account{
		Name:               "test account",
		AccountTypeID:      accountTypeID,
		Balance:            decimal.RequireFromString(balance),
		InterestStartDate:  now.AddDate(-1, 0, 0),
		InitialDepositDate: &deposit,
	}
}

// CreateTestAccrualRun returns an unsaved run record for the period containing runAt
func CreateTestAccrualRun(runAt time.Time) *models.AccrualRun {
	return &models.AccrualRun{
		RunAt:             runAt,
		Period:            models.PeriodOf(runAt),
		TotalInterest:     decimal.RequireFromString("125.50"),
		AccountsEvaluated: 12,
		AccountsAccrued:   10,
		AccountsSkipped:   1,
		AccountsFailed:    1,
		ExecutionSummary: map[string]any{
			"accounts_accrued": 10,
			"total_interest":   "125.50",
		},
	}
}
