package audit

import "context"

// Trail is the append-only audit store. Append failures must never
// block or roll back the primary outcome that produced the entry;
// callers log and continue.
type Trail interface {
	// Append records an entry. Entries are never mutated afterward.
	Append(ctx context.Context, e Entry) error

	// ByDecision returns all entries for a decision, oldest first.
	ByDecision(ctx context.Context, decisionID string) ([]Entry, error)

	// ByAgent returns an agent's entries, newest first, bounded to limit.
	ByAgent(ctx context.Context, agentID string, limit int) ([]Entry, error)
}
