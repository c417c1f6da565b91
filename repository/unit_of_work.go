package repository

import (
	"context"
	"errors"
	"fmt"

	"accrual/database"
	"accrual/events"
	"accrual/service"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db              *database.DB
	tx              pgx.Tx
	ctx             context.Context
	publisher       *events.TransactionalPublisher
	accountRepo     service.AccountRepository
	transactionRepo service.TransactionRepository
	accrualRunRepo  service.AccrualRunRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Events raised inside a
// unit of work reach publisher only after its transaction commits.
func NewUnitOfWorkFactory(db *database.DB, publisher events.Publisher) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:        db,
		publisher: publisher,
	}
}

type unitOfWorkFactory struct {
	db        *database.DB
	publisher events.Publisher
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:        f.db,
		publisher: events.NewTransactionalPublisher(f.publisher),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.accrualRunRepo = newAccrualRunRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if err := u.publisher.Flush(context.Background()); err != nil {
		log.WithError(err).Error("Failed to flush events after commit")
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.publisher.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// TransactionRepository returns the transaction repository for this unit of work
func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

// AccrualRunRepository returns the accrual run repository for this unit of work
func (u *unitOfWork) AccrualRunRepository() service.AccrualRunRepository {
	if u.accrualRunRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accrualRunRepo
}

// EventBus returns the transactional publisher for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.publisher
}
