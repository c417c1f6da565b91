package repository

import (
	"context"
	"fmt"

	"accrual/database"
	"accrual/models"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

var transactionCopyColumns = []string{"account_id", "transaction_type", "amount", "balance_after_transaction"}

// BulkCreate inserts all transactions with one COPY. IDs and creation times
// are assigned by the database and not written back.
func (r *TransactionRepository) BulkCreate(ctx context.Context, transactions []*models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	rows := make([][]any, len(transactions))
	for i, t := range transactions {
		rows[i] = []any{t.AccountID, string(t.TransactionType), t.Amount, t.BalanceAfter}
	}

	copied, err := r.q.CopyFrom(ctx, pgx.Identifier{"transactions"}, transactionCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy %d transactions: %w", len(transactions), err)
	}

	if copied != int64(len(transactions)) {
		return fmt.Errorf("copied %d transactions, expected %d", copied, len(transactions))
	}

	return nil
}

// GetByAccount returns the newest transactions of an account first.
// A limit of zero or less returns all of them.
func (r *TransactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	if limit < 0 {
		limit = 0
	}

	query := `
		SELECT id, account_id, transaction_type, amount, balance_after_transaction, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($2::int, 0)
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.AccountID,
			&t.TransactionType,
			&t.Amount,
			&t.BalanceAfter,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
