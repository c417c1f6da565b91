package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"accrual/config"
	"accrual/events"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMessage struct {
	subject string
	data    []byte
}

type fakeNATS struct {
	published []capturedMessage
	err       error
}

func (f *fakeNATS) Publish(ctx context.Context, subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, capturedMessage{subject: subject, data: data})
	return nil
}

type fakeKafkaWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func sampleAccruedEvent() events.InterestAccruedEvent {
	return events.InterestAccruedEvent{
		AccountID:  42,
		Amount:     decimal.RequireFromString("10.00"),
		OldBalance: decimal.RequireFromString("1000.00"),
		NewBalance: decimal.RequireFromString("1010.00"),
		Period:     "2024-03",
		AccruedAt:  time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
	}
}

func TestNATSEventPublisher_PublishesEnvelope(t *testing.T) {
	client := &fakeNATS{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())

	require.NoError(t, publisher.Publish(sampleAccruedEvent()))
	require.Len(t, client.published, 1)
	assert.Equal(t, SubjectInterestAccrued, client.published[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(client.published[0].data, &envelope))
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, string(events.EventTypeInterestAccrued), envelope.EventType)
	assert.Equal(t, sourceService, envelope.SourceService)

	assert.NotContains(t, string(envelope.Payload), "transaction_id")

	var payload events.InterestAccruedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(42), payload.AccountID)
	assert.True(t, payload.NewBalance.Equal(decimal.RequireFromString("1010")))
}

func TestNATSEventPublisher_WrapsClientError(t *testing.T) {
	boom := errors.New("no responders")
	publisher := NewNATSEventPublisher(&fakeNATS{err: boom}, NewEventSubjectMapper())

	err := publisher.Publish(sampleAccruedEvent())
	assert.ErrorIs(t, err, boom)
}

func TestNATSClient_PublishWithoutConnection(t *testing.T) {
	client := NewNATSClient("nats://localhost:4222")

	assert.False(t, client.IsConnected())
	assert.Error(t, client.Publish(context.Background(), SubjectInterestAccrued, []byte("{}")))
	assert.Error(t, client.EnsureStream(AccrualEventStream, []string{"accrual.>"}))
	assert.NoError(t, client.Close())
}

func TestKafkaEventPublisher_TopicPerEventType(t *testing.T) {
	writer := &fakeKafkaWriter{}
	publisher := &KafkaEventPublisher{writer: writer, subjectMapper: NewEventSubjectMapper()}

	require.NoError(t, publisher.Publish(sampleAccruedEvent()))
	require.NoError(t, publisher.Publish(events.AccrualRunCompletedEvent{RunID: 7, Period: "2024-03"}))

	require.Len(t, writer.messages, 2)
	assert.Equal(t, SubjectInterestAccrued, writer.messages[0].Topic)
	assert.Equal(t, []byte("account-42"), writer.messages[0].Key)
	assert.Equal(t, SubjectAccrualRunCompleted, writer.messages[1].Topic)
	assert.Equal(t, []byte("2024-03"), writer.messages[1].Key)

	headers := map[string]string{}
	for _, h := range writer.messages[1].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(events.EventTypeAccrualRunCompleted), headers["event_type"])
	assert.NotEmpty(t, headers["event_id"])

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaEventPublisher_WriteError(t *testing.T) {
	boom := errors.New("leader not available")
	publisher := &KafkaEventPublisher{writer: &fakeKafkaWriter{err: boom}, subjectMapper: NewEventSubjectMapper()}

	err := publisher.Publish(events.AccrualRunFailedEvent{Period: "2024-03"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), SubjectAccrualRunFailed)
}

func TestNewEventBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		backend, err := NewEventBackend(ctx, &config.Config{EventBackend: config.EventBackendNone}, nil)
		require.NoError(t, err)
		assert.IsType(t, &NoopEventPublisher{}, backend.Publisher)
		assert.NoError(t, backend.Close())
	})

	t.Run("bus", func(t *testing.T) {
		bus := events.NewBus()
		received := make(chan events.Event, 1)
		bus.Subscribe(events.EventTypeAccrualRunFailed, func(ctx context.Context, e events.Event) {
			received <- e
		})

		backend, err := NewEventBackend(ctx, &config.Config{EventBackend: config.EventBackendBus}, bus)
		require.NoError(t, err)
		require.NoError(t, backend.Publisher.Publish(events.AccrualRunFailedEvent{Period: "2024-03"}))
		require.NoError(t, backend.Close())

		select {
		case e := <-received:
			assert.Equal(t, events.EventTypeAccrualRunFailed, e.Type())
		default:
			t.Fatal("expected the bus handler to run before Close returned")
		}
	})

	t.Run("kafka", func(t *testing.T) {
		backend, err := NewEventBackend(ctx, &config.Config{
			EventBackend: config.EventBackendKafka,
			KafkaBrokers: []string{"localhost:9092"},
		}, nil)
		require.NoError(t, err)
		assert.IsType(t, &KafkaEventPublisher{}, backend.Publisher)
		assert.NoError(t, backend.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewEventBackend(ctx, &config.Config{EventBackend: "smoke-signals"}, nil)
		assert.Error(t, err)
	})
}
