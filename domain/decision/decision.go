// Package decision provides the ephemeral output of pattern evaluation
// and the policy that routes it to auto-execution or human approval.
package decision

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Command is the action a decision proposes.
type Command struct {
	// Type is the command type in the host command registry.
	Type string `json:"type"`

	// Payload is the command argument document.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decision is the in-flight output of pattern detection. It is never
// persisted directly; the workflow turns it into either a recorded
// command or a pending approval.
type Decision struct {
	// DecisionID correlates pattern detection, approval, and routing
	// outcome across the audit trail.
	DecisionID string `json:"decision_id"`

	// AgentID identifies the deciding agent.
	AgentID string `json:"agent_id"`

	// Command is the proposed action.
	Command Command `json:"command"`

	// Confidence is the certainty the action is warranted, in [0,1].
	Confidence float64 `json:"confidence"`

	// Reason explains the decision for operators.
	Reason string `json:"reason"`

	// RequiresApproval routes the decision through the human gate.
	RequiresApproval bool `json:"requires_approval"`

	// TriggeringEventIDs are the events the pattern matched on.
	TriggeringEventIDs []string `json:"triggering_event_ids,omitempty"`

	// PatternID names the pattern that produced the decision.
	PatternID string `json:"pattern_id,omitempty"`

	// CorrelationID carries the triggering event's correlation.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// New creates a decision with a generated decision ID.
func New(agentID string, cmd Command, confidence float64, reason string) Decision {
	return Decision{
		DecisionID: uuid.New().String(),
		AgentID:    agentID,
		Command:    cmd,
		Confidence: confidence,
		Reason:     reason,
	}
}
