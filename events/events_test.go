package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	published []Event
	failOn    EventType
}

func (r *recordingPublisher) Publish(event Event) error {
	if event.Type() == r.failOn {
		return errors.New("broker unavailable")
	}
	r.published = append(r.published, event)
	return nil
}

func TestBus_EmitDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var received []Event
	bus.Subscribe(EventTypeInterestAccrued, func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
	})
	bus.Subscribe(EventTypeInterestAccrued, func(ctx context.Context, event Event) {
		panic("handler bug")
	})

	event := InterestAccruedEvent{AccountID: 7, Amount: decimal.NewFromInt(10)}
	bus.Emit(context.Background(), event)
	bus.Emit(context.Background(), AccrualRunCompletedEvent{Period: "2024-01"})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, event, received[0])
}

func TestTransactionalPublisher_FlushAfterCommit(t *testing.T) {
	real := &recordingPublisher{}
	tp := NewTransactionalPublisher(real)

	require.NoError(t, tp.Publish(InterestAccruedEvent{AccountID: 1}))
	require.NoError(t, tp.Publish(AccrualRunCompletedEvent{Period: "2024-02"}))

	assert.Empty(t, real.published, "nothing is delivered before flush")
	assert.Equal(t, 2, tp.Pending())

	require.NoError(t, tp.Flush(context.Background()))
	assert.Len(t, real.published, 2)
	assert.Equal(t, 0, tp.Pending())
}

func TestTransactionalPublisher_FlushContinuesPastFailures(t *testing.T) {
	real := &recordingPublisher{failOn: EventTypeInterestAccrued}
	tp := NewTransactionalPublisher(real)

	_ = tp.Publish(InterestAccruedEvent{AccountID: 1})
	_ = tp.Publish(AccrualRunCompletedEvent{Period: "2024-03"})

	require.NoError(t, tp.Flush(context.Background()))
	require.Len(t, real.published, 1)
	assert.Equal(t, EventTypeAccrualRunCompleted, real.published[0].Type())
}

func TestTransactionalPublisher_Discard(t *testing.T) {
	real := &recordingPublisher{}
	tp := NewTransactionalPublisher(real)

	_ = tp.Publish(InterestAccruedEvent{AccountID: 1})
	tp.Discard()

	require.NoError(t, tp.Flush(context.Background()))
	assert.Empty(t, real.published)
}
