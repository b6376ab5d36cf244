// Package event provides the domain event types consumed by agent subscriptions.
package event

import (
	"encoding/json"
	"time"
)

// Event is a domain event as delivered by the external event source.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Type classifies the event.
	Type string `json:"type"`

	// StreamID identifies the stream (aggregate) the event belongs to.
	StreamID string `json:"stream_id"`

	// GlobalPosition is the monotonic position in the global event log.
	GlobalPosition int64 `json:"global_position"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains the event-specific data.
	Payload json.RawMessage `json:"payload"`

	// CorrelationID ties the event to the workflow that produced it.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewEvent creates an event with the given type and payload.
func NewEvent(streamID, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		StreamID:  streamID,
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
	}, nil
}

// UnmarshalPayload decodes the event payload into the given value.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
