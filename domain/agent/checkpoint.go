package agent

import (
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/event"
)

// NoPosition is the checkpoint position before any event was processed.
const NoPosition int64 = -1

// Checkpoint tracks per-subscription processing state. There is one
// checkpoint per (agentID, subscriptionID); it is created on first
// activation and never deleted (stop is reversible).
type Checkpoint struct {
	// AgentID identifies the owning agent.
	AgentID string `json:"agent_id"`

	// SubscriptionID identifies the event subscription.
	SubscriptionID string `json:"subscription_id"`

	// LastProcessedPosition is the global position of the last event
	// seen by this subscription. It never decreases.
	LastProcessedPosition int64 `json:"last_processed_position"`

	// LastEventID is the ID of the last event seen.
	LastEventID string `json:"last_event_id,omitempty"`

	// Status is the lifecycle state of the agent.
	Status Status `json:"status"`

	// EventsProcessed counts events the checkpoint has advanced past.
	EventsProcessed int64 `json:"events_processed"`

	// ConfigOverrides holds runtime configuration applied by
	// RECONFIGURE on top of the code-level base config.
	ConfigOverrides *Overrides `json:"config_overrides,omitempty"`

	// UpdatedAt is when the checkpoint was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckpoint creates a checkpoint for a fresh subscription.
func NewCheckpoint(agentID, subscriptionID string) *Checkpoint {
	return &Checkpoint{
		AgentID:               agentID,
		SubscriptionID:        subscriptionID,
		LastProcessedPosition: NoPosition,
		Status:                StatusStopped,
		UpdatedAt:             time.Now(),
	}
}

// Seen reports whether the event is at or below the last processed
// position. A seen event is a no-op under at-least-once redelivery.
func (c *Checkpoint) Seen(e event.Event) bool {
	return e.GlobalPosition <= c.LastProcessedPosition
}

// ShouldProcess reports whether the event should be evaluated: the
// agent must be active and the event must be beyond the checkpoint.
func (c *Checkpoint) ShouldProcess(e event.Event) bool {
	return c.Status.ProcessesEvents() && !c.Seen(e)
}

// Advance moves the checkpoint past the event. It is called after
// every processed, skipped, or terminally failed event; it is never
// called for a transient failure destined for retry. Positions at or
// below the current one are ignored, keeping advancement monotonic.
func (c *Checkpoint) Advance(e event.Event) {
	if c.Seen(e) {
		return
	}
	c.LastProcessedPosition = e.GlobalPosition
	c.LastEventID = e.ID
	c.EventsProcessed++
	c.UpdatedAt = time.Now()
}

// ApplyLifecycle transitions the checkpoint's status via the lifecycle
// table. Position is unaffected.
func (c *Checkpoint) ApplyLifecycle(ev LifecycleEvent) error {
	next, err := Transition(c.Status, ev)
	if err != nil {
		return err
	}
	c.Status = next
	c.UpdatedAt = time.Now()
	return nil
}

// Reconfigure merges overrides into the checkpoint and applies the
// RECONFIGURE lifecycle event (implicit resume when paused).
func (c *Checkpoint) Reconfigure(o Overrides) error {
	if err := c.ApplyLifecycle(EventReconfigure); err != nil {
		return err
	}
	if c.ConfigOverrides == nil {
		c.ConfigOverrides = &Overrides{}
	}
	c.ConfigOverrides.Merge(o)
	return nil
}
