package governor

import "errors"

// Domain errors for rate and cost governance.
var (
	// ErrRateLimited indicates the token bucket or queue depth rejected
	// the call. Retryable.
	ErrRateLimited = errors.New("analysis rate limited")

	// ErrBudgetExceeded indicates the daily cost budget is exhausted.
	// Permanent for the current cost window.
	ErrBudgetExceeded = errors.New("analysis cost budget exceeded")
)
