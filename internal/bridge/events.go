// Package bridge provides the core that sits between the terminal UI and
// the MCP backend client: status tracking, ordered event delivery, error
// classification, server discovery caching and the connection lifecycle.
package bridge

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags the payload shape of a backend event.
type EventType string

const (
	EventMessage     EventType = "message"
	EventAction      EventType = "action"
	EventInfo        EventType = "info"
	EventWarning     EventType = "warning"
	EventError       EventType = "error"
	EventStatus      EventType = "status"
	EventFunction    EventType = "function"
	EventObservation EventType = "observation"
	EventPlan        EventType = "plan"
)

// EventOutcome describes the progress of a streamed event.
type EventOutcome string

const (
	OutcomeInProgress EventOutcome = "in_progress"
	OutcomeSuccess    EventOutcome = "success"
	OutcomeFailed     EventOutcome = "failed"
)

// Event is an opaque payload produced by the backend. The bridge only
// interprets the type tag and delivery metadata; content semantics belong
// to the backend and the UI.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Status    EventOutcome `json:"status"`
	Content   string       `json:"content"`
	Component string       `json:"component,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(t EventType, outcome EventOutcome, content string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		Status:    outcome,
		Content:   content,
		Timestamp: time.Now(),
	}
}
