package bridge

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/domain/command"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
)

// Bridge hands recorded commands to the host pipeline. It never
// returns an error to the caller: every failure is absorbed into the
// command's status and the audit trail so that event processing and
// checkpoint advancement are insulated from routing problems.
type Bridge struct {
	router   *Router
	pipeline command.Pipeline
	commands command.Store
	trail    audit.Trail
}

// NewBridge creates a bridge.
func NewBridge(router *Router, pipeline command.Pipeline, commands command.Store, trail audit.Trail) *Bridge {
	return &Bridge{
		router:   router,
		pipeline: pipeline,
		commands: commands,
		trail:    trail,
	}
}

// Route resolves the command's route, executes the host pipeline call,
// and records the outcome. A missing route, a transform failure, or a
// pipeline error all end the command in the failed status with a
// routing-failure audit entry; the pipeline is never invoked without a
// resolved route.
func (b *Bridge) Route(ctx context.Context, cmd *command.Recorded, rc RoutingContext) {
	route, ok := b.router.Lookup(cmd.Type)
	if !ok {
		b.fail(ctx, cmd, "", fmt.Errorf("%w: %s", command.ErrNoRoute, cmd.Type))
		return
	}

	cmd.MarkProcessing()
	if err := b.commands.UpdateStatus(ctx, cmd); err != nil {
		logging.Warn().
			Add(logging.AgentID(cmd.AgentID)).
			Add(logging.DecisionID(cmd.DecisionID)).
			Add(logging.ErrorField(err)).
			Msg("command status update failed")
	}

	args, err := route.ToArgs(cmd, rc)
	if err != nil {
		b.fail(ctx, cmd, route.Target, fmt.Errorf("argument transform failed: %w", err))
		return
	}

	if _, err := b.pipeline.Execute(ctx, route.Target, args); err != nil {
		b.fail(ctx, cmd, route.Target, err)
		return
	}

	cmd.MarkCompleted()
	b.persistStatus(ctx, cmd)
	b.audit(ctx, audit.EntryCommandRouted, cmd, audit.RoutingDetails{
		CommandType: cmd.Type,
		Target:      route.Target,
		Attempts:    cmd.RoutingAttempts,
	})

	logging.Info().
		Add(logging.AgentID(cmd.AgentID)).
		Add(logging.DecisionID(cmd.DecisionID)).
		Add(logging.CommandType(cmd.Type)).
		Msg("command routed")
}

// fail records a routing failure without propagating it.
func (b *Bridge) fail(ctx context.Context, cmd *command.Recorded, target string, cause error) {
	cmd.MarkFailed()
	b.persistStatus(ctx, cmd)
	b.audit(ctx, audit.EntryCommandRoutingFailed, cmd, audit.RoutingDetails{
		CommandType: cmd.Type,
		Target:      target,
		Error:       cause.Error(),
		Attempts:    cmd.RoutingAttempts,
	})

	logging.Error().
		Add(logging.AgentID(cmd.AgentID)).
		Add(logging.DecisionID(cmd.DecisionID)).
		Add(logging.CommandType(cmd.Type)).
		Add(logging.ErrorField(cause)).
		Msg("command routing failed")
}

// persistStatus writes the command's status, best-effort.
func (b *Bridge) persistStatus(ctx context.Context, cmd *command.Recorded) {
	if err := b.commands.UpdateStatus(ctx, cmd); err != nil {
		logging.Warn().
			Add(logging.AgentID(cmd.AgentID)).
			Add(logging.DecisionID(cmd.DecisionID)).
			Add(logging.ErrorField(err)).
			Msg("command status update failed")
	}
}

// audit appends a routing audit entry, best-effort.
func (b *Bridge) audit(ctx context.Context, entryType audit.EntryType, cmd *command.Recorded, details audit.RoutingDetails) {
	if b.trail == nil {
		return
	}
	entry := audit.NewEntry(entryType, cmd.AgentID, cmd.DecisionID, details)
	if err := b.trail.Append(ctx, entry); err != nil {
		logging.Warn().
			Add(logging.AgentID(cmd.AgentID)).
			Add(logging.DecisionID(cmd.DecisionID)).
			Add(logging.ErrorField(err)).
			Msg("routing audit append failed")
	}
}
