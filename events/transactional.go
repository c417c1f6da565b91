package events

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Publisher delivers an event to its destination
type Publisher interface {
	Publish(event Event) error
}

// TransactionalPublisher holds events raised inside a unit of work until the
// surrounding database transaction commits.
type TransactionalPublisher struct {
	real    Publisher
	pending []Event
}

// NewTransactionalPublisher wraps real so that nothing reaches it before Flush
func NewTransactionalPublisher(real Publisher) *TransactionalPublisher {
	return &TransactionalPublisher{real: real}
}

// Publish queues the event
func (p *TransactionalPublisher) Publish(e Event) error {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(p.pending),
	}).Debug("Adding event to transactional publisher pending queue")
	p.pending = append(p.pending, e)
	return nil
}

// Pending returns the number of queued events
func (p *TransactionalPublisher) Pending() int {
	return len(p.pending)
}

// Flush forwards all pending events. It is called after a successful commit;
// a failed delivery is logged and the remaining events are still sent.
func (p *TransactionalPublisher) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(p.pending)).Debug("Flushing pending events")

	for i, ev := range p.pending {
		if ctx.Err() != nil {
			log.WithField("dropped", len(p.pending)-i).Warn("Context cancelled while flushing events")
			break
		}
		if err := p.real.Publish(ev); err != nil {
			log.WithFields(log.Fields{
				"eventType": ev.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	p.pending = nil
	return nil
}

// Discard drops all pending events. Called on rollback.
func (p *TransactionalPublisher) Discard() {
	log.WithField("discardedEventCount", len(p.pending)).Debug("Discarding pending events")
	p.pending = nil
}
