package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/reactor-go/domain/audit"
)

// AuditTrail implements audit.Trail in memory. Entries are stored in
// append order, which is also timestamp order for a single process.
type AuditTrail struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// NewAuditTrail creates an in-memory audit trail.
func NewAuditTrail() *AuditTrail {
	return &AuditTrail{}
}

// Append records an entry.
func (t *AuditTrail) Append(ctx context.Context, e audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, e)
	return nil
}

// ByDecision returns all entries for a decision, oldest first.
func (t *AuditTrail) ByDecision(ctx context.Context, decisionID string) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []audit.Entry
	for _, e := range t.entries {
		if e.DecisionID == decisionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ByAgent returns an agent's entries, newest first, bounded to limit.
func (t *AuditTrail) ByAgent(ctx context.Context, agentID string, limit int) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []audit.Entry
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].AgentID == agentID {
			out = append(out, t.entries[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Len returns the number of entries in the trail.
func (t *AuditTrail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Ensure AuditTrail implements audit.Trail.
var _ audit.Trail = (*AuditTrail)(nil)
