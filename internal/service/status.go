package service

import "time"

// State is the externally visible state of a configured service.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	// StateCrashed is part of the status vocabulary but transient: the
	// monitor removes and restarts a crashed service within one critical
	// section, so queries observe it only as a brief "stopped" window.
	StateCrashed State = "crashed"
)

// Status is the query-path projection of one service.
type Status struct {
	Name      string     `json:"name"`
	GroupID   string     `json:"group_id"`
	State     State      `json:"status"`
	PID       int        `json:"pid,omitempty"`
	StartedAt *time.Time `json:"start_time,omitempty"`
	Detail    string     `json:"detail"`
}
