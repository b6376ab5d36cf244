package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/domain/event"
	"github.com/felixgeelhaar/reactor-go/infrastructure/resilience"
)

func agentStatus(t *testing.T, f *fixture, agentID string) agent.Status {
	t.Helper()
	cps, err := f.checkpoints.List(context.Background(), agentID)
	if err != nil || len(cps) != 1 {
		t.Fatalf("checkpoints: %v (%d)", err, len(cps))
	}
	return cps[0].Status
}

func TestLifecycleRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.register(t, patternConfig("responder", nil))

	if got := agentStatus(t, f, "responder"); got != agent.StatusActive {
		t.Fatalf("status after start = %s", got)
	}

	if err := f.svc.PauseAgent(context.Background(), "responder"); err != nil {
		t.Fatalf("PauseAgent: %v", err)
	}
	if got := agentStatus(t, f, "responder"); got != agent.StatusPaused {
		t.Errorf("status after pause = %s", got)
	}

	if err := f.svc.ResumeAgent(context.Background(), "responder"); err != nil {
		t.Fatalf("ResumeAgent: %v", err)
	}
	if err := f.svc.StopAgent(context.Background(), "responder"); err != nil {
		t.Fatalf("StopAgent: %v", err)
	}
	if got := agentStatus(t, f, "responder"); got != agent.StatusStopped {
		t.Errorf("status after stop = %s", got)
	}

	// START, PAUSE, RESUME, STOP.
	if got := f.entriesOfType(t, "responder", audit.EntryLifecycleChanged); len(got) != 4 {
		t.Errorf("lifecycle audit entries = %d, want 4", len(got))
	}
}

func TestInvalidTransitionLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.register(t, patternConfig("responder", nil))

	err := f.svc.ResumeAgent(context.Background(), "responder")
	if !errors.Is(err, agent.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if got := agentStatus(t, f, "responder"); got != agent.StatusActive {
		t.Errorf("status after invalid transition = %s, want active", got)
	}
}

func TestReconfigureAppliesOverrides(t *testing.T) {
	f := newFixture(t)
	f.register(t, patternConfig("responder", nil))

	threshold := 0.2
	if err := f.svc.ReconfigureAgent(context.Background(), "responder", agent.Overrides{
		ConfidenceThreshold: &threshold,
	}); err != nil {
		t.Fatalf("ReconfigureAgent: %v", err)
	}

	// The fallback confidence now clears the lowered threshold, so the
	// next match auto-executes.
	f.append(t, "cust-1", "support_ticket_opened")

	cmds, _ := f.commands.ListByAgent(context.Background(), "responder", 10)
	if len(cmds) != 1 {
		t.Errorf("commands after reconfigure = %d, want 1", len(cmds))
	}
}

func TestReconfigureImplicitlyResumesPaused(t *testing.T) {
	f := newFixture(t)
	f.register(t, patternConfig("responder", nil))

	if err := f.svc.PauseAgent(context.Background(), "responder"); err != nil {
		t.Fatalf("PauseAgent: %v", err)
	}

	threshold := 0.5
	if err := f.svc.ReconfigureAgent(context.Background(), "responder", agent.Overrides{
		ConfidenceThreshold: &threshold,
	}); err != nil {
		t.Fatalf("ReconfigureAgent: %v", err)
	}

	if got := agentStatus(t, f, "responder"); got != agent.StatusActive {
		t.Errorf("status after reconfigure = %s, want active", got)
	}
}

func TestReconfigureStoppedFails(t *testing.T) {
	f := newFixture(t)
	f.register(t, patternConfig("responder", nil))

	if err := f.svc.StopAgent(context.Background(), "responder"); err != nil {
		t.Fatalf("StopAgent: %v", err)
	}

	threshold := 0.5
	err := f.svc.ReconfigureAgent(context.Background(), "responder", agent.Overrides{
		ConfidenceThreshold: &threshold,
	})
	if !errors.Is(err, agent.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestRepeatedFailuresTripErrorRecovery(t *testing.T) {
	recovery := resilience.NewBreakerRecoveryPolicy(resilience.RecoveryConfig{
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	})
	f := newFixture(t, func(cfg *ServiceConfig) {
		cfg.Recovery = recovery
	})

	agentCfg := agent.DefaultConfig("flaky", "flaky-sub")
	agentCfg.MaxAttempts = 1
	agentCfg.Handler = agent.Handler{OnEvent: func(context.Context, event.Event) error {
		return errors.New("downstream unavailable")
	}}
	f.register(t, agentCfg)

	f.append(t, "cust-1", "support_ticket_opened")
	if got := agentStatus(t, f, "flaky"); got != agent.StatusActive {
		t.Fatalf("status after first failure = %s, want active", got)
	}

	f.append(t, "cust-1", "support_ticket_opened")
	if got := agentStatus(t, f, "flaky"); got != agent.StatusErrorRecovery {
		t.Errorf("status after second failure = %s, want error_recovery", got)
	}

	// Tripped agents skip but still advance.
	e := f.append(t, "cust-1", "support_ticket_opened")
	cps, _ := f.checkpoints.List(context.Background(), "flaky")
	if cps[0].LastProcessedPosition != e.GlobalPosition {
		t.Errorf("position = %d, want %d", cps[0].LastProcessedPosition, e.GlobalPosition)
	}
}

func TestUnregisteredAgentLifecycleFails(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.StartAgent(context.Background(), "ghost"); !errors.Is(err, ErrAgentNotRegistered) {
		t.Errorf("err = %v, want ErrAgentNotRegistered", err)
	}
}
