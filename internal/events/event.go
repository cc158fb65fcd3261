package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Topic names a kind of change notification.
type Topic string

const (
	TopicStudentsChanged Topic = "students.changed"
	TopicSessionsChanged Topic = "sessions.changed"
	TopicWeekReset       Topic = "sessions.week_reset"
	TopicExportReady     Topic = "export.ready"
)

// Actions attached to change notifications.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event is a change notification delivered to subscribers and forwarded to external sinks.
type Event struct {
	Type       Topic       `json:"event_type"`
	Action     string      `json:"action,omitempty"`
	EntityID   string      `json:"entity_id,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(topic Topic, action, entityID string, payload interface{}) Event {
	return Event{Type: topic, Action: action, EntityID: entityID, Payload: payload, OccurredAt: time.Now().UTC()}
}

// Encode marshals the event for the wire.
func (e Event) Encode() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return raw, nil
}
