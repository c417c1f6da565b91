package infrastructure

import (
	"context"
	"fmt"
	"time"

	"accrual/events"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const kafkaPublishTimeout = 10 * time.Second

// kafkaWriter is the subset of *kafka.Writer used for publishing
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventPublisher publishes accrual events to Kafka, one topic per event type
type KafkaEventPublisher struct {
	writer        kafkaWriter
	subjectMapper *EventSubjectMapper
}

// NewKafkaEventPublisher creates a publisher writing to the given brokers
func NewKafkaEventPublisher(brokers []string, subjectMapper *EventSubjectMapper) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		subjectMapper: subjectMapper,
	}
}

// Publish writes the event to the topic named after its subject, keyed by
// account so that all events of one account stay ordered on a partition.
func (p *KafkaEventPublisher) Publish(event events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), kafkaPublishTimeout)
	defer cancel()

	topic := p.subjectMapper.MapEventToSubject(event)

	envelope, data, err := newEnvelope(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   messageKey(event),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(envelope.EventID)},
			{Key: "event_type", Value: []byte(envelope.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event to Kafka topic %s: %w", topic, err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"topic":     topic,
	}).Debug("Successfully published event to Kafka")
	return nil
}

// Close flushes pending writes and closes the writer
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

func messageKey(event events.Event) []byte {
	switch e := event.(type) {
	case events.InterestAccruedEvent:
		return []byte(fmt.Sprintf("account-%d", e.AccountID))
	case events.AccrualRunCompletedEvent:
		return []byte(e.Period)
	case events.AccrualRunFailedEvent:
		return []byte(e.Period)
	default:
		return nil
	}
}
