// Package models defines the core domain types for the Distiller client.
package models

import "time"

// MessageType classifies a conversation entry for display.
type MessageType string

const (
	MessageTypeMessage     MessageType = "Message"
	MessageTypeAction      MessageType = "Action"
	MessageTypeInfo        MessageType = "Info"
	MessageTypeWarning     MessageType = "Warning"
	MessageTypeError       MessageType = "Error"
	MessageTypeObservation MessageType = "Observation"
	MessageTypePlan        MessageType = "Plan"
	MessageTypeFunction    MessageType = "Function"
)

// Message is one entry in the conversation log.
type Message struct {
	ID        string      `json:"id"`
	Timestamp string      `json:"timestamp"` // display form, HH:MM:SS
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
