package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccrualRun records one committed execution of the interest accrual job
type AccrualRun struct {
	ID                int64           `db:"id"`
	RunAt             time.Time       `db:"run_at"`
	Period            string          `db:"period"` // YYYY-MM
	TotalInterest     decimal.Decimal `db:"total_interest"`
	AccountsEvaluated int             `db:"accounts_evaluated"`
	AccountsAccrued   int             `db:"accounts_accrued"`
	AccountsSkipped   int             `db:"accounts_skipped"`
	AccountsFailed    int             `db:"accounts_failed"`
	ExecutionSummary  map[string]any  `db:"execution_summary"`
	CreatedAt         time.Time       `db:"created_at"`
}

// PeriodOf returns the YYYY-MM accrual period containing t
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}
