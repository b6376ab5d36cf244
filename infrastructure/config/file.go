// Package config provides runtime configuration loading, environment
// expansion, and hot reload for agent overrides.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/domain/governor"
)

// Errors
var (
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidFormat     = errors.New("invalid config format")
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrMissingEnvVar     = errors.New("missing environment variable")
	ErrValidationFailed  = errors.New("config validation failed")
)

// File is the runtime configuration document. It carries per-agent
// overrides only; the code-level base config of each agent lives with
// the agent registration itself.
type File struct {
	// LogLevel sets the global log level (trace, debug, info, warn,
	// error, fatal).
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// LogFormat selects json or console output.
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`

	// Agents maps agent IDs to their runtime overrides.
	Agents map[string]AgentOverrides `json:"agents,omitempty" yaml:"agents,omitempty"`
}

// AgentOverrides is the document form of agent.Overrides, with
// human-readable durations.
type AgentOverrides struct {
	ConfidenceThreshold *float64                 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	RequireApproval     []string                 `json:"require_approval,omitempty" yaml:"require_approval,omitempty"`
	AutoApprove         []string                 `json:"auto_approve,omitempty" yaml:"auto_approve,omitempty"`
	ApprovalTTL         *Duration                `json:"approval_ttl,omitempty" yaml:"approval_ttl,omitempty"`
	RateLimits          *governor.LimitsOverride `json:"rate_limits,omitempty" yaml:"rate_limits,omitempty"`
	CostBudget          *governor.BudgetOverride `json:"cost_budget,omitempty" yaml:"cost_budget,omitempty"`
	MaxAttempts         *int                     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

// Domain converts the document overrides to their domain form.
func (a AgentOverrides) Domain() agent.Overrides {
	o := agent.Overrides{
		ConfidenceThreshold: a.ConfidenceThreshold,
		RequireApproval:     a.RequireApproval,
		AutoApprove:         a.AutoApprove,
		RateLimits:          a.RateLimits,
		CostBudget:          a.CostBudget,
		MaxAttempts:         a.MaxAttempts,
	}
	if a.ApprovalTTL != nil {
		ttl := time.Duration(*a.ApprovalTTL)
		o.ApprovalTTL = &ttl
	}
	return o
}

// Validate rejects documents that would push an agent into an invalid
// configuration once the overrides merge.
func (f *File) Validate() error {
	for agentID, o := range f.Agents {
		if o.ConfidenceThreshold != nil {
			if t := *o.ConfidenceThreshold; t < 0 || t > 1 {
				return fmt.Errorf("%w: agent %s: confidence_threshold %v outside [0,1]",
					ErrValidationFailed, agentID, t)
			}
		}
		if o.ApprovalTTL != nil && *o.ApprovalTTL <= 0 {
			return fmt.Errorf("%w: agent %s: approval_ttl must be positive",
				ErrValidationFailed, agentID)
		}
		if o.MaxAttempts != nil && *o.MaxAttempts < 1 {
			return fmt.Errorf("%w: agent %s: max_attempts must be at least 1",
				ErrValidationFailed, agentID)
		}
		if o.RateLimits != nil {
			if v := o.RateLimits.MaxRequestsPerMinute; v != nil && *v <= 0 {
				return fmt.Errorf("%w: agent %s: max_requests_per_minute must be positive",
					ErrValidationFailed, agentID)
			}
			if v := o.RateLimits.MaxConcurrent; v != nil && *v <= 0 {
				return fmt.Errorf("%w: agent %s: max_concurrent must be positive",
					ErrValidationFailed, agentID)
			}
			if v := o.RateLimits.QueueDepth; v != nil && *v < 0 {
				return fmt.Errorf("%w: agent %s: queue_depth must not be negative",
					ErrValidationFailed, agentID)
			}
		}
		if o.CostBudget != nil {
			if v := o.CostBudget.Daily; v != nil && *v < 0 {
				return fmt.Errorf("%w: agent %s: daily budget must not be negative",
					ErrValidationFailed, agentID)
			}
			if v := o.CostBudget.AlertThreshold; v != nil && (*v <= 0 || *v > 1) {
				return fmt.Errorf("%w: agent %s: alert_threshold %v outside (0,1]",
					ErrValidationFailed, agentID, *v)
			}
		}
	}
	return nil
}

// OverridesFor returns the domain overrides for an agent, if any.
func (f *File) OverridesFor(agentID string) (agent.Overrides, bool) {
	o, ok := f.Agents[agentID]
	if !ok {
		return agent.Overrides{}, false
	}
	return o.Domain(), true
}
