package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the interest policy shared by every account of that type
type AccountType struct {
	ID                         int64           `db:"id"`
	Name                       string          `db:"name"`
	MaximumWithdrawalAmount    decimal.Decimal `db:"maximum_withdrawal_amount"`
	AnnualInterestRate         decimal.Decimal `db:"annual_interest_rate"` // percent, 12 means 12%
	InterestCalculationPerYear int             `db:"interest_calculation_per_year"`
	CreatedAt                  time.Time       `db:"created_at"`
}

var hundred = decimal.NewFromInt(100)

// Interval returns the number of months between two accruals.
func (t *AccountType) Interval() (int, error) {
	n := t.InterestCalculationPerYear
	if n <= 0 || n > 12 || 12%n != 0 {
		return 0, fmt.Errorf("%w: account type %d has %d", ErrInvalidCalculationFrequency, t.ID, n)
	}
	return 12 / n, nil
}

// AccrualMonths returns the months in which an account whose interest started
// in startMonth receives interest. The schedule repeats every Interval() months
// anchored on startMonth and wraps across the year boundary.
func (t *AccountType) AccrualMonths(startMonth time.Month) (MonthSet, error) {
	interval, err := t.Interval()
	if err != nil {
		return 0, err
	}
	if startMonth < time.January || startMonth > time.December {
		return 0, fmt.Errorf("invalid start month %d", startMonth)
	}

	var set MonthSet
	for i := 0; i < 12; i += interval {
		m := (int(startMonth)-1+i)%12 + 1
		set = set.With(time.Month(m))
	}
	return set, nil
}

// CalculateInterest returns the interest earned by balance over one accrual
// period, rounded half-to-even to cents.
func (t *AccountType) CalculateInterest(balance decimal.Decimal) (decimal.Decimal, error) {
	if balance.IsNegative() {
		return decimal.Zero, ErrNegativeBalance
	}
	if t.AnnualInterestRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: account type %d", ErrNegativeRate, t.ID)
	}
	if _, err := t.Interval(); err != nil {
		return decimal.Zero, err
	}

	periods := decimal.NewFromInt(int64(t.InterestCalculationPerYear))
	interest := balance.Mul(t.AnnualInterestRate).Div(hundred.Mul(periods))

	return interest.RoundBank(2), nil
}
