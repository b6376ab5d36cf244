package agent

import (
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/event"
	"github.com/felixgeelhaar/reactor-go/domain/governor"
	"github.com/felixgeelhaar/reactor-go/domain/pattern"
)

// Handler is the tagged union of subscription handler kinds: an agent
// declares either a raw per-event handler or a pattern list, never
// both and never neither. The XOR is enforced at configuration time.
type Handler struct {
	// OnEvent handles each event directly.
	OnEvent event.Handler

	// Patterns are evaluated in order against the event window.
	Patterns []pattern.Definition
}

// Kind identifies which variant of the handler union is set.
func (h Handler) Kind() HandlerKind {
	switch {
	case h.OnEvent != nil && len(h.Patterns) > 0:
		return HandlerKindInvalid
	case h.OnEvent != nil:
		return HandlerKindOnEvent
	case len(h.Patterns) > 0:
		return HandlerKindPatterns
	default:
		return HandlerKindInvalid
	}
}

// HandlerKind tags the handler union variant.
type HandlerKind string

const (
	HandlerKindOnEvent  HandlerKind = "on_event"
	HandlerKindPatterns HandlerKind = "patterns"
	HandlerKindInvalid  HandlerKind = "invalid"
)

// Config is the code-level configuration of one agent subscription.
type Config struct {
	// AgentID identifies the agent.
	AgentID string `json:"agent_id" yaml:"agent_id"`

	// SubscriptionID identifies the event subscription the agent reads.
	SubscriptionID string `json:"subscription_id" yaml:"subscription_id"`

	// Handler is the event handling variant (XOR of onEvent/patterns).
	Handler Handler `json:"-" yaml:"-"`

	// ConfidenceThreshold gates auto-execution: decisions below it
	// require human approval.
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// RequireApproval lists action types that always need approval,
	// regardless of confidence.
	RequireApproval []string `json:"require_approval,omitempty" yaml:"require_approval,omitempty"`

	// AutoApprove lists action types that bypass the threshold entirely.
	AutoApprove []string `json:"auto_approve,omitempty" yaml:"auto_approve,omitempty"`

	// ApprovalTTL is how long a pending approval stays actionable.
	ApprovalTTL time.Duration `json:"approval_ttl" yaml:"approval_ttl"`

	// RateLimits bounds analysis call throughput.
	RateLimits governor.Limits `json:"rate_limits" yaml:"rate_limits"`

	// CostBudget caps daily analysis spend.
	CostBudget governor.CostBudget `json:"cost_budget" yaml:"cost_budget"`

	// MaxAttempts is how many delivery attempts a transient failure is
	// retried before the event is dead-lettered.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// DefaultConfig returns a config with sensible defaults and no handler.
func DefaultConfig(agentID, subscriptionID string) Config {
	return Config{
		AgentID:             agentID,
		SubscriptionID:      subscriptionID,
		ConfidenceThreshold: 0.7,
		ApprovalTTL:         24 * time.Hour,
		RateLimits:          governor.DefaultLimits(),
		CostBudget:          governor.DefaultCostBudget(),
		MaxAttempts:         3,
	}
}

// Validate rejects malformed configuration before any event flows.
func (c Config) Validate() error {
	if c.AgentID == "" {
		return ErrMissingAgentID
	}
	if c.SubscriptionID == "" {
		return ErrMissingSubscriptionID
	}
	if c.Handler.Kind() == HandlerKindInvalid {
		return ErrHandlerVariant
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return ErrInvalidThreshold
	}
	for _, def := range c.Handler.Patterns {
		if err := def.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Overrides is a partial runtime config applied by RECONFIGURE. Nil
// fields fall back to the base config; nested objects merge field by
// field.
type Overrides struct {
	ConfidenceThreshold *float64                 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	RequireApproval     []string                 `json:"require_approval,omitempty" yaml:"require_approval,omitempty"`
	AutoApprove         []string                 `json:"auto_approve,omitempty" yaml:"auto_approve,omitempty"`
	ApprovalTTL         *time.Duration           `json:"approval_ttl,omitempty" yaml:"approval_ttl,omitempty"`
	RateLimits          *governor.LimitsOverride `json:"rate_limits,omitempty" yaml:"rate_limits,omitempty"`
	CostBudget          *governor.BudgetOverride `json:"cost_budget,omitempty" yaml:"cost_budget,omitempty"`
	MaxAttempts         *int                     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

// Merge overlays o2 onto o. Scalar fields are replaced when set;
// nested objects deep-merge.
func (o *Overrides) Merge(o2 Overrides) {
	if o2.ConfidenceThreshold != nil {
		o.ConfidenceThreshold = o2.ConfidenceThreshold
	}
	if o2.RequireApproval != nil {
		o.RequireApproval = o2.RequireApproval
	}
	if o2.AutoApprove != nil {
		o.AutoApprove = o2.AutoApprove
	}
	if o2.ApprovalTTL != nil {
		o.ApprovalTTL = o2.ApprovalTTL
	}
	if o2.RateLimits != nil {
		if o.RateLimits == nil {
			o.RateLimits = &governor.LimitsOverride{}
		}
		o.RateLimits.Merge(*o2.RateLimits)
	}
	if o2.CostBudget != nil {
		if o.CostBudget == nil {
			o.CostBudget = &governor.BudgetOverride{}
		}
		o.CostBudget.Merge(*o2.CostBudget)
	}
	if o2.MaxAttempts != nil {
		o.MaxAttempts = o2.MaxAttempts
	}
}

// Apply returns the base config with the overrides layered on top.
// The base is not mutated.
func (o *Overrides) Apply(base Config) Config {
	if o == nil {
		return base
	}
	if o.ConfidenceThreshold != nil {
		base.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.RequireApproval != nil {
		base.RequireApproval = o.RequireApproval
	}
	if o.AutoApprove != nil {
		base.AutoApprove = o.AutoApprove
	}
	if o.ApprovalTTL != nil {
		base.ApprovalTTL = *o.ApprovalTTL
	}
	base.RateLimits = o.RateLimits.Apply(base.RateLimits)
	base.CostBudget = o.CostBudget.Apply(base.CostBudget)
	if o.MaxAttempts != nil {
		base.MaxAttempts = *o.MaxAttempts
	}
	return base
}
