// Package command provides the recorded agent command routed back into
// the host command pipeline, and the collaborator interfaces of that
// pipeline.
package command

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status tracks a recorded command through routing.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Recorded is the unit routed to the host command pipeline. It is the
// persisted form of an agent decision that cleared (or bypassed) the
// approval gate.
type Recorded struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`

	// AgentID identifies the emitting agent.
	AgentID string `json:"agent_id"`

	// Type is the command type in the host registry.
	Type string `json:"type"`

	// Payload is the command argument document.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Status tracks routing progress.
	Status Status `json:"status"`

	// Confidence is the decision confidence that emitted the command.
	Confidence float64 `json:"confidence"`

	// Reason explains why the command was emitted.
	Reason string `json:"reason"`

	// TriggeringEventIDs are the events behind the decision.
	TriggeringEventIDs []string `json:"triggering_event_ids,omitempty"`

	// DecisionID is the correlation key across the audit trail.
	DecisionID string `json:"decision_id"`

	// PatternID names the originating pattern.
	PatternID string `json:"pattern_id,omitempty"`

	// CorrelationID carries the triggering event's correlation.
	CorrelationID string `json:"correlation_id,omitempty"`

	// RoutingAttempts counts bridge invocations for this command.
	RoutingAttempts int `json:"routing_attempts"`

	// CreatedAt is when the command was recorded.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecorded creates a pending recorded command with a generated ID.
func NewRecorded(agentID, decisionID, commandType string, payload json.RawMessage) *Recorded {
	now := time.Now()
	return &Recorded{
		ID:         uuid.New().String(),
		AgentID:    agentID,
		DecisionID: decisionID,
		Type:       commandType,
		Payload:    payload,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkProcessing moves the command into the routing path.
func (r *Recorded) MarkProcessing() {
	r.Status = StatusProcessing
	r.RoutingAttempts++
	r.UpdatedAt = time.Now()
}

// MarkCompleted records a successful routing outcome.
func (r *Recorded) MarkCompleted() {
	r.Status = StatusCompleted
	r.UpdatedAt = time.Now()
}

// MarkFailed records a failed routing outcome.
func (r *Recorded) MarkFailed() {
	r.Status = StatusFailed
	r.UpdatedAt = time.Now()
}
