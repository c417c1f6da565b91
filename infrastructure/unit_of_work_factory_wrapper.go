package infrastructure

import (
	"accrual/service"

	log "github.com/sirupsen/logrus"
)

// DryRunUnitOfWorkFactory wraps a factory so that every unit of work rolls back
// instead of committing. Pending events are discarded with the rollback and
// Commit reports service.ErrDryRun.
type DryRunUnitOfWorkFactory struct {
	inner service.UnitOfWorkFactory
}

// NewDryRunUnitOfWorkFactory creates a new wrapper that implements service.UnitOfWorkFactory
func NewDryRunUnitOfWorkFactory(inner service.UnitOfWorkFactory) service.UnitOfWorkFactory {
	return &DryRunUnitOfWorkFactory{inner: inner}
}

// Create returns a unit of work whose Commit is a rollback
func (f *DryRunUnitOfWorkFactory) Create() service.UnitOfWork {
	return &dryRunUnitOfWork{UnitOfWork: f.inner.Create()}
}

type dryRunUnitOfWork struct {
	service.UnitOfWork
}

func (u *dryRunUnitOfWork) Commit() error {
	log.Info("Dry run: rolling back instead of committing")
	if err := u.UnitOfWork.Rollback(); err != nil {
		return err
	}
	return service.ErrDryRun
}
