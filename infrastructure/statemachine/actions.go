package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
)

// logStateEntry logs when entering a lifecycle state.
// In statekit, actions receive a pointer to the context. Since our
// context is *Context, actions receive **Context.
func logStateEntry(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Checkpoint == nil {
		return
	}

	cp := (*ctx).Checkpoint
	logging.Debug().
		Add(logging.AgentID(cp.AgentID)).
		Add(logging.SubscriptionID(cp.SubscriptionID)).
		Add(logging.Str("lifecycle_event", string(event.Type))).
		Msg("lifecycle state entered")
}

// guardCanTransition validates the event against the domain transition
// table. Guards receive the context by value; ours is *Context.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil || ctx.Checkpoint == nil {
		return false
	}
	return agent.CanTransition(ctx.Checkpoint.Status, agent.LifecycleEvent(event.Type))
}
