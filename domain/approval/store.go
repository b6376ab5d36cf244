package approval

import (
	"context"
	"time"
)

// Store persists pending approvals. Updates are single-record,
// compare-and-swap style: Update must reject writes whose stored
// status is no longer pending, giving last-writer-wins-with-rejection
// semantics under reviewer races.
type Store interface {
	// Create inserts the approval. A duplicate approval ID is a no-op
	// and returns created=false with no error.
	Create(ctx context.Context, a *PendingApproval) (created bool, err error)

	// Get returns the approval or ErrApprovalNotFound.
	Get(ctx context.Context, approvalID string) (*PendingApproval, error)

	// Update persists a status transition. It fails with
	// ErrInvalidStatusTransition when the stored record already left
	// pending.
	Update(ctx context.Context, a *PendingApproval) error

	// ListPending returns pending approvals for an agent, oldest first.
	ListPending(ctx context.Context, agentID string, limit int) ([]*PendingApproval, error)

	// ListDue returns pending approvals whose deadline has passed,
	// bounded to limit per call so one sweep stays cheap.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*PendingApproval, error)
}
