package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the outcome of evaluating one account
type AccountStatus string

const (
	AccountStatusAccrued AccountStatus = "accrued"
	AccountStatusSkipped AccountStatus = "skipped"
	AccountStatusFailed  AccountStatus = "failed"
)

const skipReasonNotAccrualMonth = "not an accrual month"

// AccountResult describes what the job decided for a single account
type AccountResult struct {
	AccountID     int64           `json:"account_id"`
	Status        AccountStatus   `json:"status"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	Interest      decimal.Decimal `json:"interest"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reason        string          `json:"reason,omitempty"`
	Err           error           `json:"-"`
}

// AccrualReport collects every AccountResult of one run.
// Results are in evaluation order.
type AccrualReport struct {
	RunID         int64           `json:"run_id,omitempty"`
	RunAt         time.Time       `json:"run_at"`
	Period        string          `json:"period"`
	Results       []AccountResult `json:"results"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	Committed     bool            `json:"committed"`
	DryRun        bool            `json:"dry_run,omitempty"`
	Duration      time.Duration   `json:"duration"`
}

func (r *AccrualReport) add(result AccountResult) {
	r.Results = append(r.Results, result)
	if result.Status == AccountStatusAccrued {
		r.TotalInterest = r.TotalInterest.Add(result.Interest)
	}
}

func (r *AccrualReport) filter(status AccountStatus) []AccountResult {
	var out []AccountResult
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}

// Accrued returns the results of credited accounts
func (r *AccrualReport) Accrued() []AccountResult { return r.filter(AccountStatusAccrued) }

// Skipped returns the results of accounts outside their accrual months
func (r *AccrualReport) Skipped() []AccountResult { return r.filter(AccountStatusSkipped) }

// Failed returns the results of accounts whose computation errored
func (r *AccrualReport) Failed() []AccountResult { return r.filter(AccountStatusFailed) }

// Summary returns the counters stored with the run record
func (r *AccrualReport) Summary() map[string]any {
	failed := r.Failed()
	failedIDs := make([]int64, 0, len(failed))
	for _, res := range failed {
		failedIDs = append(failedIDs, res.AccountID)
	}

	return map[string]any{
		"accounts_evaluated": len(r.Results),
		"accounts_accrued":   len(r.Accrued()),
		"accounts_skipped":   len(r.Skipped()),
		"accounts_failed":    len(failed),
		"failed_account_ids": failedIDs,
		"total_interest":     r.TotalInterest.StringFixed(2),
	}
}
