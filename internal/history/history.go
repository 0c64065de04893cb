package history

import (
	"context"
	"time"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
	EventCrash EventType = "crash"
)

// Event records one lifecycle transition of a managed service.
type Event struct {
	Type       EventType `json:"type"`
	Name       string    `json:"name"`
	GroupID    string    `json:"group_id"`
	PID        int       `json:"pid,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink persists lifecycle events. Sends are best-effort from the
// orchestrator's point of view; a failing sink never blocks control flow.
type Sink interface {
	Send(ctx context.Context, evt Event) error
	// Recent returns the most recent events, newest first. An empty name
	// matches all services.
	Recent(ctx context.Context, name string, limit int) ([]Event, error)
	Close() error
}
