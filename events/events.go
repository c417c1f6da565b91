package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeInterestAccrued     EventType = "interest_accrued"
	EventTypeAccrualRunCompleted EventType = "accrual_run_completed"
	EventTypeAccrualRunFailed    EventType = "accrual_run_failed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// InterestAccruedEvent is emitted for every account credited by a committed run
type InterestAccruedEvent struct {
	AccountID  int64           `json:"account_id"`
	Amount     decimal.Decimal `json:"amount"`
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Period     string          `json:"period"`
	AccruedAt  time.Time       `json:"accrued_at"`
}

func (e InterestAccruedEvent) Type() EventType {
	return EventTypeInterestAccrued
}

// AccrualRunCompletedEvent summarizes a committed run
type AccrualRunCompletedEvent struct {
	RunID             int64           `json:"run_id"`
	Period            string          `json:"period"`
	RunAt             time.Time       `json:"run_at"`
	TotalInterest     decimal.Decimal `json:"total_interest"`
	AccountsEvaluated int             `json:"accounts_evaluated"`
	AccountsAccrued   int             `json:"accounts_accrued"`
	AccountsSkipped   int             `json:"accounts_skipped"`
	AccountsFailed    int             `json:"accounts_failed"`
}

func (e AccrualRunCompletedEvent) Type() EventType {
	return EventTypeAccrualRunCompleted
}

// AccrualRunFailedEvent is emitted when a run was rolled back
type AccrualRunFailedEvent struct {
	Period string    `json:"period"`
	RunAt  time.Time `json:"run_at"`
	Error  string    `json:"error"`
}

func (e AccrualRunFailedEvent) Type() EventType {
	return EventTypeAccrualRunFailed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages in-process event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit dispatches an event to all registered handlers asynchronously.
// A panicking handler is logged and does not affect the others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started by Emit has returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Publish satisfies the publisher interface used by the accrual service
func (b *Bus) Publish(event Event) error {
	b.Emit(context.Background(), event)
	return nil
}
