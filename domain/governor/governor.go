// Package governor provides the domain model for rate and cost
// governance around expensive analysis calls.
package governor

import "time"

// Outcome classifies an authorization decision.
type Outcome string

const (
	// OutcomeAllowed permits the analysis call.
	OutcomeAllowed Outcome = "allowed"

	// OutcomeRateLimited rejects the call with a retryable error; the
	// caller may retry after RetryAfter.
	OutcomeRateLimited Outcome = "rate_limited"

	// OutcomeBudgetExceeded rejects the call for the rest of the cost
	// window. This is permanent-for-the-window, not retryable.
	OutcomeBudgetExceeded Outcome = "budget_exceeded"
)

// Decision is the result of an authorization check.
type Decision struct {
	Outcome Outcome

	// RetryAfter is set for OutcomeRateLimited and hints when token
	// bucket capacity becomes available again.
	RetryAfter time.Duration
}

// Allowed reports whether the call may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// Limits bounds analysis call throughput for one agent.
type Limits struct {
	// MaxRequestsPerMinute is the continuous token bucket refill rate.
	MaxRequestsPerMinute int `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`

	// MaxConcurrent bounds in-flight analysis calls.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`

	// QueueDepth bounds the backlog waiting for an in-flight slot
	// before calls are rejected with a retryable error.
	QueueDepth int `json:"queue_depth" yaml:"queue_depth"`
}

// DefaultLimits returns limits suitable for a single analysis provider.
func DefaultLimits() Limits {
	return Limits{
		MaxRequestsPerMinute: 60,
		MaxConcurrent:        4,
		QueueDepth:           16,
	}
}

// CostBudget caps cumulative analysis spend per day.
type CostBudget struct {
	// Daily is the spend ceiling for one cost window.
	Daily float64 `json:"daily" yaml:"daily"`

	// AlertThreshold is the fraction of Daily at which a non-blocking
	// alert audit entry is emitted (0.8 = 80%).
	AlertThreshold float64 `json:"alert_threshold" yaml:"alert_threshold"`
}

// DefaultCostBudget returns a conservative daily budget.
func DefaultCostBudget() CostBudget {
	return CostBudget{
		Daily:          25.0,
		AlertThreshold: 0.8,
	}
}

// LimitsOverride is a partial Limits for runtime reconfiguration.
// Nil fields fall back to the base value.
type LimitsOverride struct {
	MaxRequestsPerMinute *int `json:"max_requests_per_minute,omitempty" yaml:"max_requests_per_minute,omitempty"`
	MaxConcurrent        *int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	QueueDepth           *int `json:"queue_depth,omitempty" yaml:"queue_depth,omitempty"`
}

// Merge overlays o2 onto o, field by field.
func (o *LimitsOverride) Merge(o2 LimitsOverride) {
	if o2.MaxRequestsPerMinute != nil {
		o.MaxRequestsPerMinute = o2.MaxRequestsPerMinute
	}
	if o2.MaxConcurrent != nil {
		o.MaxConcurrent = o2.MaxConcurrent
	}
	if o2.QueueDepth != nil {
		o.QueueDepth = o2.QueueDepth
	}
}

// Apply returns the base limits with non-nil overrides applied.
func (o *LimitsOverride) Apply(base Limits) Limits {
	if o == nil {
		return base
	}
	if o.MaxRequestsPerMinute != nil {
		base.MaxRequestsPerMinute = *o.MaxRequestsPerMinute
	}
	if o.MaxConcurrent != nil {
		base.MaxConcurrent = *o.MaxConcurrent
	}
	if o.QueueDepth != nil {
		base.QueueDepth = *o.QueueDepth
	}
	return base
}

// BudgetOverride is a partial CostBudget for runtime reconfiguration.
type BudgetOverride struct {
	Daily          *float64 `json:"daily,omitempty" yaml:"daily,omitempty"`
	AlertThreshold *float64 `json:"alert_threshold,omitempty" yaml:"alert_threshold,omitempty"`
}

// Merge overlays o2 onto o, field by field.
func (o *BudgetOverride) Merge(o2 BudgetOverride) {
	if o2.Daily != nil {
		o.Daily = o2.Daily
	}
	if o2.AlertThreshold != nil {
		o.AlertThreshold = o2.AlertThreshold
	}
}

// Apply returns the base budget with non-nil overrides applied.
func (o *BudgetOverride) Apply(base CostBudget) CostBudget {
	if o == nil {
		return base
	}
	if o.Daily != nil {
		base.Daily = *o.Daily
	}
	if o.AlertThreshold != nil {
		base.AlertThreshold = *o.AlertThreshold
	}
	return base
}
