package approval

import "errors"

// Domain errors for the approval workflow.
var (
	// ErrInvalidStatusTransition indicates an approve/reject/expire on a
	// non-pending approval.
	ErrInvalidStatusTransition = errors.New("invalid approval status transition")

	// ErrApprovalExpired indicates an approve/reject past the deadline.
	ErrApprovalExpired = errors.New("approval expired")

	// ErrNotYetExpired indicates an expire before the deadline.
	ErrNotYetExpired = errors.New("approval not yet expired")

	// ErrReviewerRequired indicates a review without a reviewer ID.
	ErrReviewerRequired = errors.New("reviewer id is required")

	// ErrApprovalNotFound indicates no approval with the given ID.
	ErrApprovalNotFound = errors.New("approval not found")
)
