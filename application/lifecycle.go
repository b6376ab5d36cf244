package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
)

// StartAgent transitions the agent to active.
func (s *Service) StartAgent(ctx context.Context, agentID string) error {
	return s.applyLifecycle(ctx, agentID, agent.EventStart)
}

// PauseAgent transitions the agent to paused. Incoming events are
// skipped while the checkpoint keeps advancing.
func (s *Service) PauseAgent(ctx context.Context, agentID string) error {
	return s.applyLifecycle(ctx, agentID, agent.EventPause)
}

// ResumeAgent transitions a paused agent back to active.
func (s *Service) ResumeAgent(ctx context.Context, agentID string) error {
	return s.applyLifecycle(ctx, agentID, agent.EventResume)
}

// StopAgent transitions the agent to stopped from any non-stopped state.
func (s *Service) StopAgent(ctx context.Context, agentID string) error {
	return s.applyLifecycle(ctx, agentID, agent.EventStop)
}

// ReconfigureAgent merges runtime overrides into the agent's checkpoint
// and applies the RECONFIGURE lifecycle event. A paused agent resumes
// implicitly. Position is unaffected.
func (s *Service) ReconfigureAgent(ctx context.Context, agentID string, o agent.Overrides) error {
	rt, err := s.runtimeFor(agentID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	from := rt.cp.Status
	if err := rt.interp.Send(agent.EventReconfigure); err != nil {
		return err
	}

	if rt.cp.ConfigOverrides == nil {
		rt.cp.ConfigOverrides = &agent.Overrides{}
	}
	rt.cp.ConfigOverrides.Merge(o)

	eff := rt.effective()
	if o.RateLimits != nil || o.CostBudget != nil {
		// The governor is rebuilt with the new limits; its cost window
		// restarts at zero for the rest of the day.
		rt.governor = s.newGovernor(eff)
	}
	if o.MaxAttempts != nil {
		rt.executor = s.newExecutor(eff.MaxAttempts)
	}

	if err := s.checkpoints.Save(ctx, rt.cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.auditLifecycle(ctx, agentID, from, agent.EventReconfigure, rt.cp.Status)
	s.metrics.RecordLifecycleTransition(ctx, agentID, string(from), string(rt.cp.Status))

	logging.Info().
		Add(logging.AgentID(agentID)).
		Add(logging.Status(rt.cp.Status)).
		Msg("agent reconfigured")
	return nil
}

// applyLifecycle applies one lifecycle event under the runtime lock.
func (s *Service) applyLifecycle(ctx context.Context, agentID string, ev agent.LifecycleEvent) error {
	rt, err := s.runtimeFor(agentID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return s.applyLifecycleLocked(ctx, rt, ev)
}

// applyLifecycleLocked transitions the agent, persists the checkpoint,
// and audits the change. Caller holds the runtime lock.
func (s *Service) applyLifecycleLocked(ctx context.Context, rt *runtime, ev agent.LifecycleEvent) error {
	from := rt.cp.Status
	if err := rt.interp.Send(ev); err != nil {
		return err
	}

	if err := s.checkpoints.Save(ctx, rt.cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.auditLifecycle(ctx, rt.cp.AgentID, from, ev, rt.cp.Status)
	s.metrics.RecordLifecycleTransition(ctx, rt.cp.AgentID, string(from), string(rt.cp.Status))

	logging.Info().
		Add(logging.AgentID(rt.cp.AgentID)).
		Add(logging.Lifecycle(ev)).
		Add(logging.Status(rt.cp.Status)).
		Msg("lifecycle transition")
	return nil
}

// auditLifecycle appends the lifecycle audit entry, best-effort.
func (s *Service) auditLifecycle(ctx context.Context, agentID string, from agent.Status, ev agent.LifecycleEvent, to agent.Status) {
	entry := audit.NewEntry(audit.EntryLifecycleChanged, agentID, "", audit.LifecycleDetails{
		From:  string(from),
		Event: string(ev),
		To:    string(to),
	})
	if err := s.trail.Append(ctx, entry); err != nil {
		logging.Warn().
			Add(logging.AgentID(agentID)).
			Add(logging.ErrorField(err)).
			Msg("lifecycle audit append failed")
	}
}
