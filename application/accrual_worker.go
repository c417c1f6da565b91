package application

import (
	"context"
	"fmt"
	"time"

	"accrual/events"
	"accrual/models"
	"accrual/service"

	log "github.com/sirupsen/logrus"
)

// AccrualWorker runs the accrual task at most once per calendar month. The
// task itself is not idempotent; the worker provides the once-per-period
// guarantee by looking for an existing run before executing it.
type AccrualWorker struct {
	uowFactory service.UnitOfWorkFactory
	task       service.Task
	publisher  events.Publisher
	clock      service.Clock
	hour       int
}

// NewAccrualWorker creates a new accrual worker. Failed runs are reported on
// publisher, which may be nil.
func NewAccrualWorker(
	uowFactory service.UnitOfWorkFactory,
	task service.Task,
	publisher events.Publisher,
	clock service.Clock,
	hour int,
) *AccrualWorker {
	if clock == nil {
		clock = service.SystemClock
	}
	return &AccrualWorker{
		uowFactory: uowFactory,
		task:       task,
		publisher:  publisher,
		clock:      clock,
		hour:       hour,
	}
}

// NextRunAfter returns the first occurrence of hour:00 UTC strictly after now
func NextRunAfter(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)

	// If the run time has already passed today, schedule for tomorrow
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start begins the accrual worker. A check runs immediately so that a month
// missed while the process was down is caught up, then once a day at the
// configured hour. The returned function stops the worker.
func (w *AccrualWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	check := func() {
		if _, err := w.RunIfDue(ctx); err != nil {
			log.WithError(err).Error("Interest accrual check failed")
		}
	}

	go func() {
		log.Infof("Accrual worker started, daily check at %02d:00 UTC", w.hour)
		check()

		for {
			now := w.clock.Now()
			waitDuration := NextRunAfter(now, w.hour).Sub(now)
			log.Infof("Accrual worker waiting %v until next check", waitDuration)

			select {
			case <-ctx.Done():
				log.Info("Accrual worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Accrual worker shutting down (stop requested)...")
				return
			case <-time.After(waitDuration):
				check()
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// RunIfDue executes the task when no run has been recorded for the current
// period. It reports whether the task was executed.
func (w *AccrualWorker) RunIfDue(ctx context.Context) (bool, error) {
	now := w.clock.Now()
	period := models.PeriodOf(now)

	done, err := w.periodCompleted(ctx, period)
	if err != nil {
		return false, err
	}
	if done {
		log.WithField("period", period).Debug("Interest already accrued for period, skipping")
		return false, nil
	}

	log.WithFields(log.Fields{
		"task":   w.task.Name(),
		"period": period,
	}).Info("Running interest accrual")

	if err := w.task.Execute(ctx); err != nil {
		w.publishFailure(period, now, err)
		return true, fmt.Errorf("%s failed: %w", w.task.Name(), err)
	}
	return true, nil
}

// periodCompleted looks for a committed run in a read-only unit of work
func (w *AccrualWorker) periodCompleted(ctx context.Context, period string) (bool, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	runs, err := uow.AccrualRunRepository().GetByPeriod(ctx, period)
	if err != nil {
		return false, fmt.Errorf("failed to get accrual runs for %s: %w", period, err)
	}
	return len(runs) > 0, nil
}

func (w *AccrualWorker) publishFailure(period string, now time.Time, cause error) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(events.AccrualRunFailedEvent{
		Period: period,
		RunAt:  now,
		Error:  cause.Error(),
	}); err != nil {
		log.WithError(err).Warn("Failed to publish accrual run failed event")
	}
}
