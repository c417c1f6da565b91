package infrastructure

import (
	"encoding/json"
	"fmt"
	"time"

	"accrual/events"

	"github.com/google/uuid"
)

const sourceService = "interest-accrual"

// EventEnvelope wraps every event sent to an external broker
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// newEnvelope serializes the event into a fresh envelope
func newEnvelope(event events.Event) (*EventEnvelope, []byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return envelope, data, nil
}
