package repository

import (
	"context"
	"fmt"
	"time"

	"accrual/database"
	"accrual/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetEligibleForInterest returns funded accounts with a positive balance whose
// interest start date has been reached, joined with their account type.
func (r *AccountRepository) GetEligibleForInterest(ctx context.Context, now time.Time) ([]*models.Account, error) {
	query := `
		SELECT
			a.id, a.name, a.account_type_id, a.balance,
			a.interest_start_date, a.initial_deposit_date,
			a.created_at, a.updated_at,
			t.id, t.name, t.maximum_withdrawal_amount, t.annual_interest_rate,
			t.interest_calculation_per_year, t.created_at
		FROM accounts a
		JOIN account_types t ON t.id = a.account_type_id
		WHERE a.balance > 0
		  AND a.interest_start_date <= $1
		  AND a.initial_deposit_date IS NOT NULL
		ORDER BY a.id
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		var t models.AccountType
		if err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.AccountTypeID,
			&a.Balance,
			&a.InterestStartDate,
			&a.InitialDepositDate,
			&a.CreatedAt,
			&a.UpdatedAt,
			&t.ID,
			&t.Name,
			&t.MaximumWithdrawalAmount,
			&t.AnnualInterestRate,
			&t.InterestCalculationPerYear,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan eligible account: %w", err)
		}
		a.AccountType = &t
		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eligible accounts: %w", err)
	}

	return accounts, nil
}

// BulkUpdateBalances sets the balance of every listed account in a single statement
func (r *AccountRepository) BulkUpdateBalances(ctx context.Context, updates []models.BalanceUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	ids := make([]int64, len(updates))
	balances := make([]decimal.Decimal, len(updates))
	for i, u := range updates {
		ids[i] = u.AccountID
		balances[i] = u.Balance
	}

	query := `
		UPDATE accounts AS a
		SET balance = v.balance
		FROM unnest($1::bigint[], $2::numeric[]) AS v(id, balance)
		WHERE a.id = v.id
	`

	tag, err := r.q.Exec(ctx, query, ids, balances)
	if err != nil {
		return fmt.Errorf("failed to update balances of %d accounts: %w", len(updates), err)
	}

	if tag.RowsAffected() != int64(len(updates)) {
		return fmt.Errorf("balance update affected %d rows, expected %d", tag.RowsAffected(), len(updates))
	}

	return nil
}

// Create inserts a new account and fills in its ID and timestamps
func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (name, account_type_id, balance, interest_start_date, initial_deposit_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		a.Name,
		a.AccountTypeID,
		a.Balance,
		a.InterestStartDate,
		a.InitialDepositDate,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account %q: %w", a.Name, err)
	}

	return nil
}

// GetByID returns an account without its account type, or nil if it does not exist
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT id, name, account_type_id, balance, interest_start_date,
		       initial_deposit_date, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var a models.Account
	err := r.q.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.Name,
		&a.AccountTypeID,
		&a.Balance,
		&a.InterestStartDate,
		&a.InitialDepositDate,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}

	return &a, nil
}
