package infrastructure

import (
	"context"
	"fmt"
	"time"

	"accrual/events"

	log "github.com/sirupsen/logrus"
)

// natsPublishTimeout bounds a single JetStream publish acknowledgement
const natsPublishTimeout = 5 * time.Second

// messagePublisher is the part of NATSClient the publisher needs
type messagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSEventPublisher publishes accrual events to NATS JetStream
type NATSEventPublisher struct {
	client        messagePublisher
	subjectMapper *EventSubjectMapper
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(client messagePublisher, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), natsPublishTimeout)
	defer cancel()

	subject := p.subjectMapper.MapEventToSubject(event)

	envelope, data, err := newEnvelope(event)
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// EnsureAccrualEventStream ensures the accrual_events stream exists
func EnsureAccrualEventStream(client *NATSClient) error {
	return client.EnsureStream(AccrualEventStream, []string{"accrual.>"})
}
