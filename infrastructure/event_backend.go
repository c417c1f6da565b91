package infrastructure

import (
	"context"
	"fmt"

	"accrual/config"
	"accrual/events"

	log "github.com/sirupsen/logrus"
)

// EventBackend is the publisher selected by configuration together with the
// cleanup needed at shutdown.
type EventBackend struct {
	Publisher events.Publisher
	close     func() error
}

// Close releases the broker connection, if any
func (b *EventBackend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// NewEventBackend connects the publisher named by cfg.EventBackend
func NewEventBackend(ctx context.Context, cfg *config.Config, bus *events.Bus) (*EventBackend, error) {
	mapper := NewEventSubjectMapper()

	switch cfg.EventBackend {
	case config.EventBackendNATS:
		client := NewNATSClient(cfg.NATSServers)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		if err := EnsureAccrualEventStream(client); err != nil {
			_ = client.Close()
			return nil, err
		}
		return &EventBackend{
			Publisher: NewNATSEventPublisher(client, mapper),
			close:     client.Close,
		}, nil

	case config.EventBackendKafka:
		publisher := NewKafkaEventPublisher(cfg.KafkaBrokers, mapper)
		log.WithField("brokers", cfg.KafkaBrokers).Info("Publishing events to Kafka")
		return &EventBackend{Publisher: publisher, close: publisher.Close}, nil

	case config.EventBackendBus:
		if bus == nil {
			bus = events.NewBus()
		}
		log.Info("Publishing events to in-process bus")
		return &EventBackend{
			Publisher: bus,
			close: func() error {
				bus.Wait()
				return nil
			},
		}, nil

	case config.EventBackendNone, "":
		log.Info("Event publishing disabled")
		return &EventBackend{Publisher: NewNoopEventPublisher()}, nil

	default:
		return nil, fmt.Errorf("unknown event backend: %s", cfg.EventBackend)
	}
}
