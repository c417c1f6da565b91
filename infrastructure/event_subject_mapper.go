package infrastructure

import (
	"fmt"

	"accrual/events"
)

// Subjects published by the accrual job
const (
	SubjectInterestAccrued     = "accrual.interest.accrued"
	SubjectAccrualRunCompleted = "accrual.run.completed"
	SubjectAccrualRunFailed    = "accrual.run.failed"
)

// EventSubjectMapper handles mapping between accrual events and message bus subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its corresponding subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeInterestAccrued:
		return SubjectInterestAccrued
	case events.EventTypeAccrualRunCompleted:
		return SubjectAccrualRunCompleted
	case events.EventTypeAccrualRunFailed:
		return SubjectAccrualRunFailed
	default:
		// Fallback for unknown event types
		return fmt.Sprintf("accrual.unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case SubjectInterestAccrued:
		return events.EventTypeInterestAccrued
	case SubjectAccrualRunCompleted:
		return events.EventTypeAccrualRunCompleted
	case SubjectAccrualRunFailed:
		return events.EventTypeAccrualRunFailed
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		SubjectInterestAccrued,
		SubjectAccrualRunCompleted,
		SubjectAccrualRunFailed,
	}
}
