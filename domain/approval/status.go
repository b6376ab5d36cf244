package approval

// Status is the review state of a pending approval.
type Status string

const (
	// StatusPending awaits a reviewer or expiry.
	StatusPending Status = "pending"

	// StatusApproved is terminal; the underlying command was emitted.
	StatusApproved Status = "approved"

	// StatusRejected is terminal; nothing was emitted.
	StatusRejected Status = "rejected"

	// StatusExpired is terminal; the deadline passed unreviewed.
	StatusExpired Status = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}
