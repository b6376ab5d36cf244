package agent

import "context"

// CheckpointStore persists per-subscription checkpoints. Saves are
// single-record updates; implementations must reject position
// regressions so advancement stays monotonic under races.
type CheckpointStore interface {
	// Load returns the checkpoint for the pair, or ErrCheckpointNotFound.
	Load(ctx context.Context, agentID, subscriptionID string) (*Checkpoint, error)

	// Save persists the checkpoint, creating it if absent.
	Save(ctx context.Context, cp *Checkpoint) error

	// List returns all checkpoints for an agent.
	List(ctx context.Context, agentID string) ([]*Checkpoint, error)
}
