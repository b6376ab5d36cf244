// Package deadletter records events that exhausted all processing
// attempts, awaiting manual disposition.
package deadletter

import "time"

// Status is the disposition state of a dead letter.
type Status string

const (
	// StatusPending awaits investigation.
	StatusPending Status = "pending"

	// StatusReplayed is terminal; the event was re-submitted successfully.
	StatusReplayed Status = "replayed"

	// StatusIgnored is terminal; the event was written off.
	StatusIgnored Status = "ignored"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusReplayed || s == StatusIgnored
}

// Context carries optional failure diagnostics.
type Context struct {
	CorrelationID     string `json:"correlation_id,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`
	TriggeringPattern string `json:"triggering_pattern,omitempty"`
}

// DeadLetter is one failed event, keyed by (AgentID, EventID). A
// repeated failure of the same event upserts the existing pending
// record in place.
type DeadLetter struct {
	// AgentID identifies the agent whose processing failed.
	AgentID string `json:"agent_id"`

	// EventID identifies the failed event.
	EventID string `json:"event_id"`

	// SubscriptionID identifies the delivering subscription.
	SubscriptionID string `json:"subscription_id"`

	// GlobalPosition is the event's position in the global log.
	GlobalPosition int64 `json:"global_position"`

	// Error is the latest failure message.
	Error string `json:"error"`

	// AttemptCount counts recorded failures for this event.
	AttemptCount int `json:"attempt_count"`

	// Status is the disposition state.
	Status Status `json:"status"`

	// FailedAt is when the latest failure was recorded.
	FailedAt time.Time `json:"failed_at"`

	// Context carries optional diagnostics.
	Context *Context `json:"context,omitempty"`
}

// CanTransitionTo reports whether the disposition change is allowed:
// only pending → replayed|ignored.
func (d *DeadLetter) CanTransitionTo(target Status) bool {
	return d.Status == StatusPending && target.IsTerminal()
}
