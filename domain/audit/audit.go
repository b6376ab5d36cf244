// Package audit provides the append-only explainability trail. Entries
// are never mutated; the decision ID joins pattern detection, approval,
// and routing outcome into one story.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntryType is the fixed taxonomy of audit events.
type EntryType string

const (
	EntryDecisionMade         EntryType = "agent_decision_made"
	EntryActionApproved       EntryType = "agent_action_approved"
	EntryActionRejected       EntryType = "agent_action_rejected"
	EntryActionExpired        EntryType = "agent_action_expired"
	EntryCommandRouted        EntryType = "agent_command_routed"
	EntryCommandRoutingFailed EntryType = "agent_command_routing_failed"
	EntryBudgetAlert          EntryType = "agent_budget_alert"
	EntryBudgetExceeded       EntryType = "agent_budget_exceeded"
	EntryLifecycleChanged     EntryType = "agent_lifecycle_changed"
	EntryEventDeadLettered    EntryType = "agent_event_dead_lettered"
)

// Entry is a single immutable audit record.
type Entry struct {
	// ID is the unique identifier for this entry.
	ID string `json:"id"`

	// Type classifies the entry within the fixed taxonomy.
	Type EntryType `json:"type"`

	// AgentID identifies the agent.
	AgentID string `json:"agent_id"`

	// DecisionID correlates entries across the decision's life. Empty
	// for entries not tied to a decision (budget, lifecycle).
	DecisionID string `json:"decision_id,omitempty"`

	// Timestamp is when the entry was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains the entry-specific details.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEntry creates an audit entry, marshalling the details. A details
// marshal failure degrades to an empty payload rather than blocking
// the caller; audit writers are best-effort by design of the no-throw
// discipline.
func NewEntry(entryType EntryType, agentID, decisionID string, details any) Entry {
	var payload json.RawMessage
	if details != nil {
		payload, _ = json.Marshal(details)
	}

	return Entry{
		ID:         uuid.New().String(),
		Type:       entryType,
		AgentID:    agentID,
		DecisionID: decisionID,
		Timestamp:  time.Now(),
		Payload:    payload,
	}
}

// DecodePayload unmarshals the entry payload into the given value.
func (e Entry) DecodePayload(v any) error {
	if e.Payload == nil {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// DecisionMadeDetails is the payload for EntryDecisionMade.
type DecisionMadeDetails struct {
	PatternID          string   `json:"pattern_id,omitempty"`
	CommandType        string   `json:"command_type"`
	Confidence         float64  `json:"confidence"`
	Reason             string   `json:"reason,omitempty"`
	RequiresApproval   bool     `json:"requires_approval"`
	TriggeringEventIDs []string `json:"triggering_event_ids,omitempty"`
}

// ReviewDetails is the payload for approval outcome entries.
type ReviewDetails struct {
	ApprovalID string `json:"approval_id"`
	ReviewerID string `json:"reviewer_id,omitempty"`
	Note       string `json:"note,omitempty"`
}

// RoutingDetails is the payload for routing outcome entries.
type RoutingDetails struct {
	CommandType string `json:"command_type"`
	Target      string `json:"target,omitempty"`
	Error       string `json:"error,omitempty"`
	Attempts    int    `json:"attempts,omitempty"`
}

// BudgetDetails is the payload for budget entries.
type BudgetDetails struct {
	Spent     float64 `json:"spent"`
	Daily     float64 `json:"daily"`
	Threshold float64 `json:"threshold,omitempty"`
}

// LifecycleDetails is the payload for lifecycle entries.
type LifecycleDetails struct {
	From  string `json:"from"`
	Event string `json:"event"`
	To    string `json:"to"`
}

// DeadLetterDetails is the payload for dead-letter entries.
type DeadLetterDetails struct {
	EventID  string `json:"event_id"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}
