// Package governor enforces rate and cost limits around analysis calls
// using fortify's token bucket and bulkhead.
package governor

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/domain/event"
	domain "github.com/felixgeelhaar/reactor-go/domain/governor"
	"github.com/felixgeelhaar/reactor-go/domain/pattern"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
)

// Config configures the governor for one agent scope.
type Config struct {
	// Limits bounds throughput and concurrency.
	Limits domain.Limits

	// Budget caps daily spend.
	Budget domain.CostBudget

	// Trail receives budget alert entries. Optional; alerts are
	// best-effort and never block authorization.
	Trail audit.Trail

	// Now is the clock, injectable for tests.
	Now func() time.Time
}

// costWindow accumulates spend for one agent and one calendar day.
type costWindow struct {
	day     string
	spent   float64
	alerted bool
	blocked bool
}

// Governor authorizes and executes analysis calls under rate and cost
// governance. State is explicit and keyed by agent ID plus time
// window; nothing is ambient.
type Governor struct {
	limits  domain.Limits
	budget  domain.CostBudget
	trail   audit.Trail
	now     func() time.Time
	limiter ratelimit.RateLimiter
	bh      bulkhead.Bulkhead[pattern.Analysis]

	// sem admits callers into the bulkhead so it always has a free
	// slot; waiting counts admitted plus queued callers.
	sem chan struct{}

	mu      sync.Mutex
	windows map[string]*costWindow
	waiting int
}

// New creates a governor.
func New(cfg Config) *Governor {
	limits := cfg.Limits
	if limits.MaxRequestsPerMinute <= 0 {
		limits.MaxRequestsPerMinute = domain.DefaultLimits().MaxRequestsPerMinute
	}
	if limits.MaxConcurrent <= 0 {
		limits.MaxConcurrent = domain.DefaultLimits().MaxConcurrent
	}
	if limits.QueueDepth <= 0 {
		limits.QueueDepth = domain.DefaultLimits().QueueDepth
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Governor{
		limits: limits,
		budget: cfg.Budget,
		trail:  cfg.Trail,
		now:    now,
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:  limits.MaxRequestsPerMinute,
			Burst: limits.MaxRequestsPerMinute,
		}),
		bh: bulkhead.New[pattern.Analysis](bulkhead.Config{
			MaxConcurrent: limits.MaxConcurrent,
		}),
		sem:     make(chan struct{}, limits.MaxConcurrent),
		windows: make(map[string]*costWindow),
	}
}

// Authorize decides whether an analysis call may proceed for the agent.
// Budget exhaustion is permanent for the window; rate limiting is
// retryable with a hint.
func (g *Governor) Authorize(ctx context.Context, agentID string) domain.Decision {
	if g.budget.Daily > 0 {
		g.mu.Lock()
		w := g.window(agentID)
		exhausted := w.spent >= g.budget.Daily
		firstHit := exhausted && !w.blocked
		if firstHit {
			w.blocked = true
		}
		spent := w.spent
		g.mu.Unlock()

		if exhausted {
			if firstHit {
				g.auditBudget(ctx, audit.EntryBudgetExceeded, agentID, spent, 1.0)
			}
			return domain.Decision{Outcome: domain.OutcomeBudgetExceeded}
		}
	}

	if !g.limiter.Allow(ctx, agentID) {
		retryAfter := time.Minute / time.Duration(g.limits.MaxRequestsPerMinute)
		logging.Debug().
			Add(logging.AgentID(agentID)).
			Add(logging.Duration(retryAfter)).
			Msg("analysis rate limited")
		return domain.Decision{
			Outcome:    domain.OutcomeRateLimited,
			RetryAfter: retryAfter,
		}
	}

	return domain.Decision{Outcome: domain.OutcomeAllowed}
}

// Analyze runs the analyzer under the concurrency bulkhead. Callers
// beyond the queue depth are rejected with the retryable rate-limit
// error rather than queued without bound.
func (g *Governor) Analyze(ctx context.Context, agentID string, analyzer pattern.Analyzer, events []event.Event) (pattern.Analysis, error) {
	g.mu.Lock()
	if g.waiting >= g.limits.MaxConcurrent+g.limits.QueueDepth {
		g.mu.Unlock()
		return pattern.Analysis{}, domain.ErrRateLimited
	}
	g.waiting++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.waiting--
		g.mu.Unlock()
	}()

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return pattern.Analysis{}, ctx.Err()
	}
	defer func() { <-g.sem }()

	return g.bh.Execute(ctx, func(ctx context.Context) (pattern.Analysis, error) {
		return analyzer(ctx, events)
	})
}

// RecordSpend adds analysis cost to the agent's daily window and emits
// a non-blocking alert audit entry when the alert threshold is crossed.
func (g *Governor) RecordSpend(ctx context.Context, agentID string, cost float64) {
	if cost <= 0 || g.budget.Daily <= 0 {
		return
	}

	g.mu.Lock()
	w := g.window(agentID)
	w.spent += cost
	crossed := !w.alerted && g.budget.AlertThreshold > 0 &&
		w.spent >= g.budget.Daily*g.budget.AlertThreshold
	if crossed {
		w.alerted = true
	}
	spent := w.spent
	g.mu.Unlock()

	if crossed {
		g.auditBudget(ctx, audit.EntryBudgetAlert, agentID, spent, g.budget.AlertThreshold)
	}
}

// Spent returns the agent's spend in the current window.
func (g *Governor) Spent(agentID string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window(agentID).spent
}

// window returns the agent's current cost window, resetting it on the
// day boundary. Caller holds the lock.
func (g *Governor) window(agentID string) *costWindow {
	day := g.now().UTC().Format("2006-01-02")
	w, ok := g.windows[agentID]
	if !ok || w.day != day {
		w = &costWindow{day: day}
		g.windows[agentID] = w
	}
	return w
}

// auditBudget writes a budget audit entry, best-effort.
func (g *Governor) auditBudget(ctx context.Context, entryType audit.EntryType, agentID string, spent, threshold float64) {
	if g.trail == nil {
		return
	}
	entry := audit.NewEntry(entryType, agentID, "", audit.BudgetDetails{
		Spent:     spent,
		Daily:     g.budget.Daily,
		Threshold: threshold,
	})
	if err := g.trail.Append(ctx, entry); err != nil {
		logging.Warn().
			Add(logging.AgentID(agentID)).
			Add(logging.ErrorField(err)).
			Msg("budget audit append failed")
	}
}
