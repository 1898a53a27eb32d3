package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	// TypeTrashChanged fires after every trash-document mutation, local or
	// from another context. Payload is a fresh stats snapshot.
	TypeTrashChanged Type = "trash.changed"

	TypeTrashCleanup  Type = "trash.cleanup"
	TypeTrashExpiring Type = "trash.expiring"

	TypeSessionRestored Type = "session.restored"
	TypeSessionChanged  Type = "session.changed"

	// TypeNotification carries user-facing toast messages.
	TypeNotification Type = "notification"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`

	// Origin identifies the execution context that produced the event.
	// Empty for local events; set when relaying a foreign write.
	Origin string `json:"origin,omitempty"`
}

// New builds an event with a generated id and current timestamp.
func New(t Type, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Notification is the payload of TypeNotification events.
type Notification struct {
	Message  string `json:"message"`
	Severity string `json:"severity"` // info, success, warning, error
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
