// Package memory provides an in-process implementation of the accrual
// repositories with the same transactional behavior as the Postgres ones.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"accrual/events"
	"accrual/models"
	"accrual/service"
)

// state is the full contents of the store. A unit of work operates on a copy.
type state struct {
	accountTypes map[int64]models.AccountType
	accounts     map[int64]models.Account
	transactions []models.Transaction
	runs         []models.AccrualRun
	nextID       int64
}

func (s *state) clone() *state {
	c := &state{
		accountTypes: make(map[int64]models.AccountType, len(s.accountTypes)),
		accounts:     make(map[int64]models.Account, len(s.accounts)),
		transactions: append([]models.Transaction(nil), s.transactions...),
		runs:         append([]models.AccrualRun(nil), s.runs...),
		nextID:       s.nextID,
	}
	for id, t := range s.accountTypes {
		c.accountTypes[id] = t
	}
	for id, a := range s.accounts {
		c.accounts[id] = a
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Failures injects storage errors into the next units of work
type Failures struct {
	BulkCreate         error
	BulkUpdateBalances error
	CreateRun          error
	Commit             error
}

// Store is a concurrency-safe in-memory database
type Store struct {
	mu        sync.Mutex
	data      *state
	failures  Failures
	publisher events.Publisher
	now       func() time.Time
}

// NewStore creates an empty store. Events flushed by committed units of work
// are forwarded to publisher, which may be nil.
func NewStore(publisher events.Publisher) *Store {
	if publisher == nil {
		publisher = discardPublisher{}
	}
	return &Store{
		data: &state{
			accountTypes: make(map[int64]models.AccountType),
			accounts:     make(map[int64]models.Account),
		},
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// InjectFailures makes subsequent units of work fail at the given steps
func (s *Store) InjectFailures(f Failures) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = f
}

// AddAccountType stores t and returns it with its assigned ID
func (s *Store) AddAccountType(t models.AccountType) models.AccountType {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.data.id()
	t.CreatedAt = s.now()
	s.data.accountTypes[t.ID] = t
	return t
}

// AddAccount stores a and returns it with its assigned ID
func (s *Store) AddAccount(a models.Account) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.data.id()
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	a.AccountType = nil
	s.data.accounts[a.ID] = a
	return a
}

// Account returns the committed state of an account
func (s *Store) Account(id int64) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.accounts[id]
	return a, ok
}

// Transactions returns the committed transactions of an account in insertion order
func (s *Store) Transactions(accountID int64) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.data.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

// TransactionCount returns the number of committed transactions
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.transactions)
}

// Runs returns the committed accrual runs in insertion order
func (s *Store) Runs() []models.AccrualRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AccrualRun(nil), s.data.runs...)
}

// Create implements service.UnitOfWorkFactory
func (s *Store) Create() service.UnitOfWork {
	return &unitOfWork{
		store:     s,
		publisher: events.NewTransactionalPublisher(s.publisher),
	}
}

type unitOfWork struct {
	store     *Store
	work      *state
	failures  Failures
	publisher *events.TransactionalPublisher
	ctx       context.Context
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.work != nil {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	u.work = u.store.data.clone()
	u.failures = u.store.failures
	u.store.mu.Unlock()
	u.ctx = ctx
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.work == nil {
		return fmt.Errorf("no transaction to commit")
	}
	if u.failures.Commit != nil {
		return fmt.Errorf("failed to commit transaction: %w", u.failures.Commit)
	}

	u.store.mu.Lock()
	u.store.data = u.work
	u.store.mu.Unlock()
	u.work = nil

	return u.publisher.Flush(u.ctx)
}

func (u *unitOfWork) Rollback() error {
	if u.work == nil {
		return nil
	}
	u.work = nil
	u.publisher.Discard()
	return nil
}

func (u *unitOfWork) mustBegin() {
	if u.work == nil {
		panic("unit of work not started - call Begin() first")
	}
}

func (u *unitOfWork) AccountRepository() service.AccountRepository {
	u.mustBegin()
	return &accountRepository{uow: u}
}

func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	u.mustBegin()
	return &transactionRepository{uow: u}
}

func (u *unitOfWork) AccrualRunRepository() service.AccrualRunRepository {
	u.mustBegin()
	return &accrualRunRepository{uow: u}
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.publisher
}

type accountRepository struct {
	uow *unitOfWork
}

func (r *accountRepository) GetEligibleForInterest(ctx context.Context, now time.Time) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range r.uow.work.accounts {
		if !a.IsEligibleForInterest(now) {
			continue
		}
		account := a
		if t, ok := r.uow.work.accountTypes[a.AccountTypeID]; ok {
			account.AccountType = &t
		}
		out = append(out, &account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *accountRepository) BulkUpdateBalances(ctx context.Context, updates []models.BalanceUpdate) error {
	if err := r.uow.failures.BulkUpdateBalances; err != nil {
		return err
	}
	for _, u := range updates {
		if _, ok := r.uow.work.accounts[u.AccountID]; !ok {
			return fmt.Errorf("account %d not found", u.AccountID)
		}
	}
	now := r.uow.store.now()
	for _, u := range updates {
		a := r.uow.work.accounts[u.AccountID]
		a.Balance = u.Balance
		a.UpdatedAt = now
		r.uow.work.accounts[u.AccountID] = a
	}
	return nil
}

type transactionRepository struct {
	uow *unitOfWork
}

func (r *transactionRepository) BulkCreate(ctx context.Context, transactions []*models.Transaction) error {
	if err := r.uow.failures.BulkCreate; err != nil {
		return err
	}
	for _, t := range transactions {
		if _, ok := r.uow.work.accounts[t.AccountID]; !ok {
			return fmt.Errorf("account %d not found", t.AccountID)
		}
	}
	now := r.uow.store.now()
	for _, t := range transactions {
		stored := *t
		stored.ID = r.uow.work.id()
		stored.CreatedAt = now
		r.uow.work.transactions = append(r.uow.work.transactions, stored)
	}
	return nil
}

func (r *transactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for i := len(r.uow.work.transactions) - 1; i >= 0; i-- {
		t := r.uow.work.transactions[i]
		if t.AccountID != accountID {
			continue
		}
		out = append(out, &t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type accrualRunRepository struct {
	uow *unitOfWork
}

func (r *accrualRunRepository) Create(ctx context.Context, run *models.AccrualRun) error {
	if err := r.uow.failures.CreateRun; err != nil {
		return err
	}
	run.ID = r.uow.work.id()
	run.CreatedAt = r.uow.store.now()
	r.uow.work.runs = append(r.uow.work.runs, *run)
	return nil
}

func (r *accrualRunRepository) GetLatest(ctx context.Context) (*models.AccrualRun, error) {
	if len(r.uow.work.runs) == 0 {
		return nil, nil
	}
	latest := r.uow.work.runs[0]
	for _, run := range r.uow.work.runs[1:] {
		if !run.RunAt.Before(latest.RunAt) {
			latest = run
		}
	}
	return &latest, nil
}

func (r *accrualRunRepository) GetByPeriod(ctx context.Context, period string) ([]*models.AccrualRun, error) {
	var out []*models.AccrualRun
	for _, run := range r.uow.work.runs {
		if run.Period == period {
			run := run
			out = append(out, &run)
		}
	}
	return out, nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(events.Event) error { return nil }

var _ service.UnitOfWorkFactory = (*Store)(nil)
