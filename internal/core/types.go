package core

import (
	"time"
)

// RunState is a step of a single runner invocation.
type RunState int

// Run states. AwaitingCredential is the initial state; Succeeded and Failed
// are terminal.
const (
	StateAwaitingCredential RunState = iota
	StateSending
	StateSucceeded
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateAwaitingCredential:
		return "awaiting_credential"
	case StateSending:
		return "sending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// RunRecord is the persisted summary of one invocation.
type RunRecord struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	Model         string    `json:"model"`
	State         string    `json:"state"`
	DurationMs    int64     `json:"duration_ms"`
	ErrorCode     string    `json:"error_code,omitempty"`
	Error         string    `json:"error,omitempty"`
	ResponseChars int       `json:"response_chars"`
}

// Outcome is the in-memory result of one invocation.
type Outcome struct {
	RunID    string
	State    RunState
	Text     string
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the completion was received.
func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}
