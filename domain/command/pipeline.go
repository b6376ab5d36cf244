package command

import (
	"context"
	"encoding/json"
)

// Pipeline is the host command execution surface. The agent subsystem
// only calls it through the bridge; failures are reflected in the
// recorded command's status, never propagated to event processing.
type Pipeline interface {
	// Execute runs a registered command with the given arguments.
	Execute(ctx context.Context, commandType string, args json.RawMessage) (json.RawMessage, error)
}

// Registry exposes the host command registry for route validation.
type Registry interface {
	// Has reports whether a command type is registered.
	Has(commandType string) bool
}

// Store persists recorded agent commands.
type Store interface {
	// Record inserts a recorded command.
	Record(ctx context.Context, r *Recorded) error

	// Get returns the command or ErrCommandNotFound.
	Get(ctx context.Context, id string) (*Recorded, error)

	// GetByDecision returns the command recorded for a decision, or
	// ErrCommandNotFound.
	GetByDecision(ctx context.Context, decisionID string) (*Recorded, error)

	// UpdateStatus persists a status change.
	UpdateStatus(ctx context.Context, r *Recorded) error

	// ListByAgent returns an agent's commands, newest first.
	ListByAgent(ctx context.Context, agentID string, limit int) ([]*Recorded, error)
}
