package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
)

// RecoveryConfig tunes the failure breaker behind error recovery.
type RecoveryConfig struct {
	// FailureThreshold is the consecutive failures before tripping.
	FailureThreshold int

	// Cooldown is how long a tripped agent waits before a recovery
	// probe is allowed.
	Cooldown time.Duration
}

// DefaultRecoveryConfig returns a configuration with sensible defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

var errProbeFailure = errors.New("recorded processing failure")

// BreakerRecoveryPolicy implements agent.RecoveryPolicy on a per-agent
// circuit breaker. Consecutive terminal failures open the breaker,
// which maps to the error-recovery lifecycle state; after the cooldown
// a successful pass closes it again.
type BreakerRecoveryPolicy struct {
	config RecoveryConfig

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker[struct{}]
}

// NewBreakerRecoveryPolicy creates a breaker-backed recovery policy.
func NewBreakerRecoveryPolicy(config RecoveryConfig) *BreakerRecoveryPolicy {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultRecoveryConfig().FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultRecoveryConfig().Cooldown
	}

	return &BreakerRecoveryPolicy{
		config:   config,
		breakers: make(map[string]circuitbreaker.CircuitBreaker[struct{}]),
	}
}

// RecordFailure notes a terminal processing failure and reports whether
// the agent should enter error recovery.
func (p *BreakerRecoveryPolicy) RecordFailure(agentID string) bool {
	breaker := p.breaker(agentID)
	_, _ = breaker.Execute(context.Background(), func(context.Context) (struct{}, error) {
		return struct{}{}, errProbeFailure
	})
	return breaker.State() == circuitbreaker.StateOpen
}

// RecordSuccess notes a successful processing pass and reports whether
// a tripped agent may recover.
func (p *BreakerRecoveryPolicy) RecordSuccess(agentID string) bool {
	breaker := p.breaker(agentID)
	if breaker.State() == circuitbreaker.StateClosed {
		return false
	}
	_, err := breaker.Execute(context.Background(), func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	return err == nil && breaker.State() != circuitbreaker.StateOpen
}

// Tripped reports whether the agent's breaker is currently open.
func (p *BreakerRecoveryPolicy) Tripped(agentID string) bool {
	return p.breaker(agentID).State() == circuitbreaker.StateOpen
}

func (p *BreakerRecoveryPolicy) breaker(agentID string) circuitbreaker.CircuitBreaker[struct{}] {
	p.mu.Lock()
	defer p.mu.Unlock()

	breaker, ok := p.breakers[agentID]
	if ok {
		return breaker
	}

	threshold := uint32(p.config.FailureThreshold) // #nosec G115 -- bounds checked in constructor
	breaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    p.config.Cooldown,
		Timeout:     p.config.Cooldown,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	p.breakers[agentID] = breaker
	return breaker
}

// Ensure BreakerRecoveryPolicy implements agent.RecoveryPolicy.
var _ agent.RecoveryPolicy = (*BreakerRecoveryPolicy)(nil)
