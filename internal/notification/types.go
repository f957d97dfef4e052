// Package notification sends user-facing alerts, such as the daily goal
// being exceeded, through push providers.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type represents the category of a notification
type Type string

const (
	// TypeGoalExceeded is sent once when today's total passes the goal.
	TypeGoalExceeded Type = "goal_exceeded"
	// TypeInfo indicates an informational notification
	TypeInfo Type = "info"
	// TypeError indicates a system error notification
	TypeError Type = "error"
)

// Notification is one message to deliver.
type Notification struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewNotification creates a notification with a fresh id.
func NewNotification(t Type, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      t,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithMetadata adds a metadata entry and returns n.
func (n *Notification) WithMetadata(key string, value any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any)
	}
	n.Metadata[key] = value
	return n
}
