package repository

import (
	"context"

	"accrual/database"
	"accrual/models"

	"github.com/jackc/pgx/v5"
)

// SeedAccounts inserts accounts together with an opening deposit for every
// funded one, all in a single transaction. IDs are filled in on success.
func SeedAccounts(ctx context.Context, db *database.DB, accounts ...*models.Account) error {
	return db.WithTransaction(ctx, func(tx pgx.Tx) error {
		accountRepo := newAccountRepositoryWithTx(tx)

		var deposits []*models.Transaction
		for _, a := range accounts {
			if err := accountRepo.Create(ctx, a); err != nil {
				return err
			}
			if a.InitialDepositDate == nil || !a.Balance.IsPositive() {
				continue
			}
			deposits = append(deposits, &models.Transaction{
				AccountID:       a.ID,
				TransactionType: models.TransactionTypeDeposit,
				Amount:          a.Balance,
				BalanceAfter:    a.Balance,
			})
		}

		if len(deposits) == 0 {
			return nil
		}
		return newTransactionRepositoryWithTx(tx).BulkCreate(ctx, deposits)
	})
}
