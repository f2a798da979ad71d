package events

import (
	"encoding/json"
	"fmt"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types
const (
	TypeSessionUpdated = "session_updated"
	TypeSessionEnded   = "session_ended"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// SessionPayload is the payload of the session events. OriginID names the
// room that caused the change; that room has already pushed it.
type SessionPayload struct {
	SessionID string `json:"session_id"`
	OriginID  string `json:"origin_id,omitempty"`
}

// NewSessionEvent encodes a session event of the given type.
func NewSessionEvent(eventType string, payload SessionPayload) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	event, err := json.Marshal(Event{Type: eventType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return event, nil
}

// ParseSessionEvent decodes an event published with NewSessionEvent.
func ParseSessionEvent(data []byte) (string, SessionPayload, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return "", SessionPayload{}, fmt.Errorf("could not unmarshal event: %w", err)
	}

	var payload SessionPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return "", SessionPayload{}, fmt.Errorf("could not unmarshal %s payload: %w", event.Type, err)
	}
	return event.Type, payload, nil
}
