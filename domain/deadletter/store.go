package deadletter

import "context"

// Stats summarizes dead letters per agent.
type Stats struct {
	AgentID  string `json:"agent_id"`
	Pending  int    `json:"pending"`
	Replayed int    `json:"replayed"`
	Ignored  int    `json:"ignored"`
}

// Total returns the total dead letters for the agent.
func (s Stats) Total() int {
	return s.Pending + s.Replayed + s.Ignored
}

// Store persists dead letters.
type Store interface {
	// Record upserts: when a pending record exists for the same
	// (agentID, eventID), it increments AttemptCount and replaces the
	// error and timestamp in place; otherwise it inserts a new pending
	// record with AttemptCount 1.
	Record(ctx context.Context, d *DeadLetter) error

	// Get returns the record or ErrDeadLetterNotFound.
	Get(ctx context.Context, agentID, eventID string) (*DeadLetter, error)

	// UpdateStatus transitions pending → replayed|ignored. Any other
	// transition fails with ErrInvalidStatusTransition.
	UpdateStatus(ctx context.Context, agentID, eventID string, target Status) error

	// ListPending returns pending records for an agent, oldest first.
	ListPending(ctx context.Context, agentID string, limit int) ([]*DeadLetter, error)

	// StatsByAgent aggregates per-agent counts.
	StatsByAgent(ctx context.Context) ([]Stats, error)
}
