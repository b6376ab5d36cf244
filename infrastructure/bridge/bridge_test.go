package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/domain/command"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/memory"
)

type fakeRegistry struct {
	registered map[string]bool
}

func (r *fakeRegistry) Has(commandType string) bool {
	return r.registered[commandType]
}

type fakePipeline struct {
	calls []string
	err   error
}

func (p *fakePipeline) Execute(_ context.Context, commandType string, _ json.RawMessage) (json.RawMessage, error) {
	p.calls = append(p.calls, commandType)
	if p.err != nil {
		return nil, p.err
	}
	return json.RawMessage(`{}`), nil
}

func passThrough(cmd *command.Recorded, _ RoutingContext) (json.RawMessage, error) {
	return cmd.Payload, nil
}

func newBridgeFixture(t *testing.T, pipeline *fakePipeline) (*Bridge, *Router, *memory.CommandStore, *memory.AuditTrail) {
	t.Helper()
	registry := &fakeRegistry{registered: map[string]bool{"host.scale_service": true}}
	router := NewRouter(registry)
	commands := memory.NewCommandStore()
	trail := memory.NewAuditTrail()
	return NewBridge(router, pipeline, commands, trail), router, commands, trail
}

func recordCommand(t *testing.T, commands *memory.CommandStore, commandType string) *command.Recorded {
	t.Helper()
	cmd := command.NewRecorded("agent-1", "dec-1", commandType, json.RawMessage(`{"replicas":3}`))
	if err := commands.Record(context.Background(), cmd); err != nil {
		t.Fatalf("Record: %v", err)
	}
	return cmd
}

func entriesOfType(t *testing.T, trail *memory.AuditTrail, decisionID string, entryType audit.EntryType) []audit.Entry {
	t.Helper()
	all, err := trail.ByDecision(context.Background(), decisionID)
	if err != nil {
		t.Fatalf("ByDecision: %v", err)
	}
	var out []audit.Entry
	for _, e := range all {
		if e.Type == entryType {
			out = append(out, e)
		}
	}
	return out
}

func TestBridgeRoutesCommand(t *testing.T) {
	ctx := context.Background()
	pipeline := &fakePipeline{}
	bridge, router, commands, trail := newBridgeFixture(t, pipeline)

	if err := router.Register("scale_service", Route{Target: "host.scale_service", ToArgs: passThrough}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	cmd := recordCommand(t, commands, "scale_service")

	bridge.Route(ctx, cmd, RoutingContext{DecisionID: "dec-1", AgentID: "agent-1"})

	if len(pipeline.calls) != 1 || pipeline.calls[0] != "host.scale_service" {
		t.Errorf("pipeline calls = %v, want [host.scale_service]", pipeline.calls)
	}

	stored, err := commands.Get(ctx, cmd.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != command.StatusCompleted {
		t.Errorf("status = %s, want completed", stored.Status)
	}
	if stored.RoutingAttempts != 1 {
		t.Errorf("attempts = %d, want 1", stored.RoutingAttempts)
	}

	routed := entriesOfType(t, trail, "dec-1", audit.EntryCommandRouted)
	if len(routed) != 1 {
		t.Fatalf("routed entries = %d, want 1", len(routed))
	}
}

func TestBridgeNoRouteFailsWithoutPipelineCall(t *testing.T) {
	ctx := context.Background()
	pipeline := &fakePipeline{}
	bridge, _, commands, trail := newBridgeFixture(t, pipeline)

	cmd := recordCommand(t, commands, "unknown_command")
	bridge.Route(ctx, cmd, RoutingContext{DecisionID: "dec-1", AgentID: "agent-1"})

	if len(pipeline.calls) != 0 {
		t.Errorf("pipeline was called: %v", pipeline.calls)
	}

	stored, _ := commands.Get(ctx, cmd.ID)
	if stored.Status != command.StatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}

	failed := entriesOfType(t, trail, "dec-1", audit.EntryCommandRoutingFailed)
	if len(failed) != 1 {
		t.Fatalf("routing_failed entries = %d, want exactly 1", len(failed))
	}
	var details audit.RoutingDetails
	if err := failed[0].DecodePayload(&details); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if details.Error == "" {
		t.Error("routing_failed entry carries no error")
	}
}

func TestBridgePipelineErrorFailsCommand(t *testing.T) {
	ctx := context.Background()
	pipeline := &fakePipeline{err: errors.New("orchestrator unavailable")}
	bridge, router, commands, trail := newBridgeFixture(t, pipeline)

	if err := router.Register("scale_service", Route{Target: "host.scale_service", ToArgs: passThrough}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	cmd := recordCommand(t, commands, "scale_service")

	bridge.Route(ctx, cmd, RoutingContext{DecisionID: "dec-1", AgentID: "agent-1"})

	stored, _ := commands.Get(ctx, cmd.ID)
	if stored.Status != command.StatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if len(entriesOfType(t, trail, "dec-1", audit.EntryCommandRoutingFailed)) != 1 {
		t.Error("expected one routing_failed entry")
	}
}

func TestBridgeTransformErrorFailsCommand(t *testing.T) {
	ctx := context.Background()
	pipeline := &fakePipeline{}
	bridge, router, commands, _ := newBridgeFixture(t, pipeline)

	err := router.Register("scale_service", Route{
		Target: "host.scale_service",
		ToArgs: func(*command.Recorded, RoutingContext) (json.RawMessage, error) {
			return nil, errors.New("missing replica count")
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	cmd := recordCommand(t, commands, "scale_service")

	bridge.Route(ctx, cmd, RoutingContext{DecisionID: "dec-1", AgentID: "agent-1"})

	if len(pipeline.calls) != 0 {
		t.Errorf("pipeline was called: %v", pipeline.calls)
	}
	stored, _ := commands.Get(ctx, cmd.ID)
	if stored.Status != command.StatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
}

func TestRouterRegisterValidation(t *testing.T) {
	registry := &fakeRegistry{registered: map[string]bool{"host.scale_service": true}}
	router := NewRouter(registry)

	if err := router.Register("scale_service", Route{Target: "host.scale_service", ToArgs: passThrough}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err := router.Register("scale_service", Route{Target: "host.scale_service", ToArgs: passThrough})
	if !errors.Is(err, command.ErrDuplicateRoute) {
		t.Errorf("duplicate = %v, want ErrDuplicateRoute", err)
	}

	err = router.Register("restart_service", Route{Target: "host.restart_service", ToArgs: passThrough})
	if !errors.Is(err, command.ErrTargetNotRegistered) {
		t.Errorf("missing target = %v, want ErrTargetNotRegistered", err)
	}

	if err := router.Register("bad", Route{Target: "host.scale_service"}); err == nil {
		t.Error("route without transform accepted")
	}
}
