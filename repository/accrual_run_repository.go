package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"accrual/database"
	"accrual/models"

	"github.com/jackc/pgx/v5"
)

// AccrualRunRepository implements the AccrualRunRepository interface
type AccrualRunRepository struct {
	q queryable
}

// NewAccrualRunRepository creates a new accrual run repository
func NewAccrualRunRepository(db *database.DB) *AccrualRunRepository {
	return &AccrualRunRepository{q: db.Pool}
}

func newAccrualRunRepositoryWithTx(tx queryable) *AccrualRunRepository {
	return &AccrualRunRepository{q: tx}
}

const accrualRunColumns = `id, run_at, period, total_interest, accounts_evaluated,
		accounts_accrued, accounts_skipped, accounts_failed, execution_summary, created_at`

// Create records a run. Several runs may share a period.
func (r *AccrualRunRepository) Create(ctx context.Context, run *models.AccrualRun) error {
	summaryJSON, err := json.Marshal(run.ExecutionSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	query := `
		INSERT INTO accrual_runs
		(run_at, period, total_interest, accounts_evaluated, accounts_accrued,
		 accounts_skipped, accounts_failed, execution_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		run.RunAt,
		run.Period,
		run.TotalInterest,
		run.AccountsEvaluated,
		run.AccountsAccrued,
		run.AccountsSkipped,
		run.AccountsFailed,
		summaryJSON,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create accrual run for period %s: %w", run.Period, err)
	}

	return nil
}

// GetLatest returns the most recent run, or nil if none has been recorded
func (r *AccrualRunRepository) GetLatest(ctx context.Context) (*models.AccrualRun, error) {
	query := `SELECT ` + accrualRunColumns + ` FROM accrual_runs ORDER BY run_at DESC, id DESC LIMIT 1`

	run, err := scanAccrualRun(r.q.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest accrual run: %w", err)
	}

	return run, nil
}

// GetByPeriod returns every run recorded for a YYYY-MM period, oldest first
func (r *AccrualRunRepository) GetByPeriod(ctx context.Context, period string) ([]*models.AccrualRun, error) {
	query := `SELECT ` + accrualRunColumns + ` FROM accrual_runs WHERE period = $1 ORDER BY run_at, id`

	rows, err := r.q.Query(ctx, query, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get accrual runs for period %s: %w", period, err)
	}
	defer rows.Close()

	var runs []*models.AccrualRun
	for rows.Next() {
		run, err := scanAccrualRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accrual run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accrual runs: %w", err)
	}

	return runs, nil
}

func scanAccrualRun(row pgx.Row) (*models.AccrualRun, error) {
	var run models.AccrualRun
	var summaryJSON []byte

	if err := row.Scan(
		&run.ID,
		&run.RunAt,
		&run.Period,
		&run.TotalInterest,
		&run.AccountsEvaluated,
		&run.AccountsAccrued,
		&run.AccountsSkipped,
		&run.AccountsFailed,
		&summaryJSON,
		&run.CreatedAt,
	); err != nil {
		return nil, err
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.ExecutionSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution summary: %w", err)
		}
	}

	return &run, nil
}
