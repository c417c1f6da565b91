package repository

import (
	"context"
	"fmt"

	"accrual/database"
	"accrual/models"

	"github.com/jackc/pgx/v5"
)

// AccountTypeRepository stores interest policies
type AccountTypeRepository struct {
	q queryable
}

// NewAccountTypeRepository creates a new account type repository
func NewAccountTypeRepository(db *database.DB) *AccountTypeRepository {
	return &AccountTypeRepository{q: db.Pool}
}

func newAccountTypeRepositoryWithTx(tx queryable) *AccountTypeRepository {
	return &AccountTypeRepository{q: tx}
}

const accountTypeColumns = `id, name, maximum_withdrawal_amount, annual_interest_rate,
		interest_calculation_per_year, created_at`

// Create inserts a new account type and fills in its ID and creation time
func (r *AccountTypeRepository) Create(ctx context.Context, t *models.AccountType) error {
	query := `
		INSERT INTO account_types (name, maximum_withdrawal_amount, annual_interest_rate, interest_calculation_per_year)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		t.Name,
		t.MaximumWithdrawalAmount,
		t.AnnualInterestRate,
		t.InterestCalculationPerYear,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account type %q: %w", t.Name, err)
	}

	return nil
}

// GetByID returns the account type or nil when it does not exist
func (r *AccountTypeRepository) GetByID(ctx context.Context, id int64) (*models.AccountType, error) {
	query := `SELECT ` + accountTypeColumns + ` FROM account_types WHERE id = $1`

	var t models.AccountType
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.MaximumWithdrawalAmount,
		&t.AnnualInterestRate,
		&t.InterestCalculationPerYear,
		&t.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account type %d: %w", id, err)
	}

	return &t, nil
}

// List returns all account types ordered by name
func (r *AccountTypeRepository) List(ctx context.Context) ([]*models.AccountType, error) {
	query := `SELECT ` + accountTypeColumns + ` FROM account_types ORDER BY name`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list account types: %w", err)
	}
	defer rows.Close()

	var types []*models.AccountType
	for rows.Next() {
		var t models.AccountType
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.MaximumWithdrawalAmount,
			&t.AnnualInterestRate,
			&t.InterestCalculationPerYear,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account type: %w", err)
		}
		types = append(types, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account types: %w", err)
	}

	return types, nil
}
