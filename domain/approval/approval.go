// Package approval provides the human-in-loop gate for low-confidence
// or sensitive agent actions.
package approval

import (
	"encoding/json"
	"time"
)

// Action is the command held behind the approval gate.
type Action struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PendingApproval is a persisted request for human review. It is
// created once (duplicate approval IDs are a no-op) and transitions
// only from pending; approved, rejected, and expired are terminal.
type PendingApproval struct {
	// ApprovalID is the idempotency key.
	ApprovalID string `json:"approval_id"`

	// AgentID identifies the requesting agent.
	AgentID string `json:"agent_id"`

	// DecisionID correlates the approval with its decision.
	DecisionID string `json:"decision_id"`

	// Action is the gated command.
	Action Action `json:"action"`

	// Confidence is the decision confidence at request time.
	Confidence float64 `json:"confidence"`

	// Reason explains why the action was proposed.
	Reason string `json:"reason"`

	// Status is the review state.
	Status Status `json:"status"`

	// TriggeringEventIDs are the events behind the decision.
	TriggeringEventIDs []string `json:"triggering_event_ids,omitempty"`

	// ExpiresAt is when the approval stops being actionable.
	ExpiresAt time.Time `json:"expires_at"`

	// CreatedAt is when the approval was requested.
	CreatedAt time.Time `json:"created_at"`

	// ReviewerID identifies who approved or rejected.
	ReviewerID string `json:"reviewer_id,omitempty"`

	// ReviewedAt is when the review happened.
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	// ReviewNote is the reviewer's comment.
	ReviewNote string `json:"review_note,omitempty"`
}

// Approve transitions pending → approved. It fails without partial
// state change when the approval is not pending or already past expiry.
func (a *PendingApproval) Approve(reviewerID, note string, now time.Time) error {
	if a.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	if !now.Before(a.ExpiresAt) {
		return ErrApprovalExpired
	}
	if reviewerID == "" {
		return ErrReviewerRequired
	}

	a.Status = StatusApproved
	a.ReviewerID = reviewerID
	a.ReviewNote = note
	a.ReviewedAt = &now
	return nil
}

// Reject transitions pending → rejected under the same guards as Approve.
func (a *PendingApproval) Reject(reviewerID, note string, now time.Time) error {
	if a.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	if !now.Before(a.ExpiresAt) {
		return ErrApprovalExpired
	}
	if reviewerID == "" {
		return ErrReviewerRequired
	}

	a.Status = StatusRejected
	a.ReviewerID = reviewerID
	a.ReviewNote = note
	a.ReviewedAt = &now
	return nil
}

// Expire transitions pending → expired once the deadline has passed.
func (a *PendingApproval) Expire(now time.Time) error {
	if a.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	if now.Before(a.ExpiresAt) {
		return ErrNotYetExpired
	}

	a.Status = StatusExpired
	a.ReviewedAt = &now
	return nil
}

// Due reports whether a pending approval has passed its deadline.
func (a *PendingApproval) Due(now time.Time) bool {
	return a.Status == StatusPending && !now.Before(a.ExpiresAt)
}
