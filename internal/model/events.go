package model

import "time"

// AgentEventType is the closed set of event kinds an agent may publish.
// Unknown kinds are rejected at publish time rather than relayed silently.
type AgentEventType string

const (
	EventStarted   AgentEventType = "started"
	EventProgress  AgentEventType = "progress"
	EventCompleted AgentEventType = "completed"
	EventFailed    AgentEventType = "failed"
)

// Valid reports whether t is a known event type.
func (t AgentEventType) Valid() bool {
	switch t {
	case EventStarted, EventProgress, EventCompleted, EventFailed:
		return true
	}
	return false
}

// AgentEvent is a transient progress/lifecycle event for one job. Events are
// relayed to live subscribers only and never persisted; the job record in the
// state store is the durable view of progress.
type AgentEvent struct {
	Type      AgentEventType `json:"type"`
	Agent     string         `json:"agent"`
	JobID     string         `json:"job_id"`
	Timestamp time.Time      `json:"timestamp"`

	// Progress fields, set for EventProgress.
	Progress int    `json:"progress,omitempty"` // 0-100
	Stage    string `json:"stage,omitempty"`
	Message  string `json:"message,omitempty"`

	// Terminal payloads.
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
