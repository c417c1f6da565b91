package service

import (
	"context"
	"time"
)

// Task is a zero-argument unit of work that any scheduler can invoke
type Task interface {
	Name() string
	Execute(ctx context.Context) error
}

// AccrualRunner is the part of AccrualService a task needs
type AccrualRunner interface {
	Run(ctx context.Context, now time.Time) (*AccrualReport, error)
}

// AccrualTask adapts an AccrualRunner to Task, reading the run timestamp from a Clock
type AccrualTask struct {
	runner AccrualRunner
	clock  Clock

	// OnReport, when set, receives the report of every execution including failed ones
	OnReport func(report *AccrualReport, err error)
}

// NewAccrualTask creates a task that runs the accrual job at clock.Now()
func NewAccrualTask(runner AccrualRunner, clock Clock) *AccrualTask {
	if clock == nil {
		clock = SystemClock
	}
	return &AccrualTask{runner: runner, clock: clock}
}

// Name identifies the task to schedulers
func (t *AccrualTask) Name() string {
	return "calculate_interest"
}

// Execute runs the accrual job once
func (t *AccrualTask) Execute(ctx context.Context) error {
	report, err := t.runner.Run(ctx, t.clock.Now())
	if t.OnReport != nil {
		t.OnReport(report, err)
	}
	return err
}

var _ Task = (*AccrualTask)(nil)
