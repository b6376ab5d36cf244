// Package application provides the services orchestrating agent event
// processing, lifecycle, approvals, and command routing.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/domain/approval"
	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/domain/command"
	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
	"github.com/felixgeelhaar/reactor-go/domain/event"
	"github.com/felixgeelhaar/reactor-go/domain/pattern"
	"github.com/felixgeelhaar/reactor-go/infrastructure/bridge"
	"github.com/felixgeelhaar/reactor-go/infrastructure/governor"
	"github.com/felixgeelhaar/reactor-go/infrastructure/observability"
	"github.com/felixgeelhaar/reactor-go/infrastructure/queue"
	"github.com/felixgeelhaar/reactor-go/infrastructure/resilience"
	"github.com/felixgeelhaar/reactor-go/infrastructure/statemachine"
)

// Registration errors.
var (
	ErrAgentNotRegistered     = errors.New("agent not registered")
	ErrAgentAlreadyRegistered = errors.New("agent already registered")
)

// ServiceConfig wires the service's collaborators. Stores, the event
// source, and the task queue are required; the rest default.
type ServiceConfig struct {
	Checkpoints agent.CheckpointStore
	Approvals   approval.Store
	Commands    command.Store
	DeadLetters deadletter.Store
	Trail       audit.Trail

	// Source delivers subscription events; Reader fills pattern windows.
	Source event.Source
	Reader event.Reader

	// Tasks is the fire-and-forget hand-off between event processing
	// and command routing.
	Tasks queue.Queue

	// Router maps command types to host pipeline targets.
	Router *bridge.Router

	// Pipeline executes routed commands in the host.
	Pipeline command.Pipeline

	// Engine evaluates pattern definitions. Defaults to the standard
	// fallback scoring.
	Engine *pattern.Engine

	// Recovery decides when repeated failures trip error recovery.
	// Optional; without it agents never trip automatically.
	Recovery agent.RecoveryPolicy

	// Metrics records operational metrics. Defaults to noop.
	Metrics observability.Metrics

	// Retry tunes the transient-failure executor. MaxAttempts is taken
	// from each agent's config; this sets the backoff shape.
	Retry *resilience.ExecutorConfig

	// AnalysisCost is the flat cost charged against the agent's daily
	// budget per deep analysis call.
	AnalysisCost float64

	// Now is the clock, injectable for tests.
	Now func() time.Time
}

// runtime is the per-agent mutable state. Its mutex serializes event
// processing, lifecycle commands, and reconfiguration for one agent;
// different agents proceed in parallel.
type runtime struct {
	mu       sync.Mutex
	base     agent.Config
	cp       *agent.Checkpoint
	interp   *statemachine.Interpreter
	governor *governor.Governor
	executor *resilience.Executor
}

// effective returns the base config with checkpoint overrides applied.
// Caller holds the runtime lock.
func (rt *runtime) effective() agent.Config {
	return rt.cp.ConfigOverrides.Apply(rt.base)
}

// Service is the orchestration layer of the agent subsystem.
type Service struct {
	checkpoints agent.CheckpointStore
	approvals   approval.Store
	commands    command.Store
	deadletters deadletter.Store
	trail       audit.Trail
	source      event.Source
	reader      event.Reader
	tasks       queue.Queue
	bridge      *bridge.Bridge
	engine      *pattern.Engine
	recovery    agent.RecoveryPolicy
	metrics     observability.Metrics
	retry       resilience.ExecutorConfig
	cost        float64
	now         func() time.Time

	mu     sync.RWMutex
	agents map[string]*runtime
}

// NewService creates the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Checkpoints == nil:
		return nil, errors.New("checkpoint store is required")
	case cfg.Approvals == nil:
		return nil, errors.New("approval store is required")
	case cfg.Commands == nil:
		return nil, errors.New("command store is required")
	case cfg.DeadLetters == nil:
		return nil, errors.New("dead-letter store is required")
	case cfg.Trail == nil:
		return nil, errors.New("audit trail is required")
	case cfg.Source == nil:
		return nil, errors.New("event source is required")
	case cfg.Reader == nil:
		return nil, errors.New("event reader is required")
	case cfg.Tasks == nil:
		return nil, errors.New("task queue is required")
	case cfg.Router == nil:
		return nil, errors.New("command router is required")
	case cfg.Pipeline == nil:
		return nil, errors.New("command pipeline is required")
	}

	s := &Service{
		checkpoints: cfg.Checkpoints,
		approvals:   cfg.Approvals,
		commands:    cfg.Commands,
		deadletters: cfg.DeadLetters,
		trail:       cfg.Trail,
		source:      cfg.Source,
		reader:      cfg.Reader,
		tasks:       cfg.Tasks,
		bridge:      bridge.NewBridge(cfg.Router, cfg.Pipeline, cfg.Commands, cfg.Trail),
		engine:      cfg.Engine,
		recovery:    cfg.Recovery,
		metrics:     cfg.Metrics,
		cost:        cfg.AnalysisCost,
		now:         cfg.Now,
		agents:      make(map[string]*runtime),
	}

	if s.engine == nil {
		s.engine = pattern.NewDefaultEngine()
	}
	if s.metrics == nil {
		s.metrics = &observability.NoopMetricsProvider{}
	}
	if cfg.Retry != nil {
		s.retry = *cfg.Retry
	} else {
		s.retry = resilience.DefaultExecutorConfig()
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s, nil
}

// Register validates the agent config, loads or creates its checkpoint,
// and subscribes it to the event source. The agent starts in whatever
// lifecycle state the checkpoint persisted; a fresh agent is stopped
// until StartAgent.
func (s *Service) Register(ctx context.Context, cfg agent.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.agents[cfg.AgentID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAgentAlreadyRegistered, cfg.AgentID)
	}
	s.mu.Unlock()

	cp, err := s.checkpoints.Load(ctx, cfg.AgentID, cfg.SubscriptionID)
	switch {
	case errors.Is(err, agent.ErrCheckpointNotFound):
		cp = agent.NewCheckpoint(cfg.AgentID, cfg.SubscriptionID)
		if err := s.checkpoints.Save(ctx, cp); err != nil {
			return fmt.Errorf("failed to create checkpoint: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	machine, err := statemachine.NewLifecycleMachine()
	if err != nil {
		return fmt.Errorf("failed to build lifecycle machine: %w", err)
	}
	interp := statemachine.NewInterpreter(machine, cp)
	if err := interp.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle interpreter: %w", err)
	}

	rt := &runtime{base: cfg, cp: cp, interp: interp}
	eff := rt.effective()
	rt.governor = s.newGovernor(eff)
	rt.executor = s.newExecutor(eff.MaxAttempts)

	s.mu.Lock()
	s.agents[cfg.AgentID] = rt
	s.mu.Unlock()

	return s.source.Subscribe(ctx, cfg.SubscriptionID, func(ctx context.Context, e event.Event) error {
		return s.handleEvent(ctx, rt, e)
	})
}

// runtimeFor returns the runtime for an agent.
func (s *Service) runtimeFor(agentID string) (*runtime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotRegistered, agentID)
	}
	return rt, nil
}

func (s *Service) newGovernor(eff agent.Config) *governor.Governor {
	return governor.New(governor.Config{
		Limits: eff.RateLimits,
		Budget: eff.CostBudget,
		Trail:  s.trail,
		Now:    s.now,
	})
}

func (s *Service) newExecutor(maxAttempts int) *resilience.Executor {
	cfg := s.retry
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	return resilience.NewExecutor(cfg)
}

// CheckpointStatus returns the agent's checkpoints.
func (s *Service) CheckpointStatus(ctx context.Context, agentID string) ([]*agent.Checkpoint, error) {
	return s.checkpoints.List(ctx, agentID)
}

// AuditByDecision returns the audit trail of one decision, oldest first.
func (s *Service) AuditByDecision(ctx context.Context, decisionID string) ([]audit.Entry, error) {
	return s.trail.ByDecision(ctx, decisionID)
}

// AuditByAgent returns an agent's audit entries, newest first.
func (s *Service) AuditByAgent(ctx context.Context, agentID string, limit int) ([]audit.Entry, error) {
	return s.trail.ByAgent(ctx, agentID, limit)
}

// Spent returns the agent's analysis spend in the current cost window.
func (s *Service) Spent(agentID string) (float64, error) {
	rt, err := s.runtimeFor(agentID)
	if err != nil {
		return 0, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.governor.Spent(agentID), nil
}
