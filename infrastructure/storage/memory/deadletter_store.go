package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
)

// DeadLetterStore implements deadletter.Store in memory.
type DeadLetterStore struct {
	mu      sync.RWMutex
	records map[string]*deadletter.DeadLetter
}

// NewDeadLetterStore creates an in-memory dead-letter store.
func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{
		records: make(map[string]*deadletter.DeadLetter),
	}
}

func deadLetterKey(agentID, eventID string) string {
	return agentID + "/" + eventID
}

// Record upserts the dead letter. An existing pending record for the
// same (agentID, eventID) is updated in place with an incremented
// attempt count; anything else inserts a fresh pending record.
func (s *DeadLetterStore) Record(ctx context.Context, d *deadletter.DeadLetter) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := deadLetterKey(d.AgentID, d.EventID)
	if existing, ok := s.records[key]; ok && existing.Status == deadletter.StatusPending {
		existing.AttemptCount++
		existing.Error = d.Error
		existing.FailedAt = d.FailedAt
		existing.GlobalPosition = d.GlobalPosition
		if d.Context != nil {
			existing.Context = cloneDeadLetterContext(d.Context)
		}
		return nil
	}

	fresh := cloneDeadLetter(d)
	fresh.Status = deadletter.StatusPending
	fresh.AttemptCount = 1
	s.records[key] = fresh
	return nil
}

// Get returns the record or ErrDeadLetterNotFound.
func (s *DeadLetterStore) Get(ctx context.Context, agentID, eventID string) (*deadletter.DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.records[deadLetterKey(agentID, eventID)]
	if !ok {
		return nil, deadletter.ErrDeadLetterNotFound
	}
	return cloneDeadLetter(d), nil
}

// UpdateStatus transitions the disposition, allowing only pending to a
// terminal state.
func (s *DeadLetterStore) UpdateStatus(ctx context.Context, agentID, eventID string, target deadletter.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.records[deadLetterKey(agentID, eventID)]
	if !ok {
		return deadletter.ErrDeadLetterNotFound
	}
	if !d.CanTransitionTo(target) {
		return deadletter.ErrInvalidStatusTransition
	}
	d.Status = target
	return nil
}

// ListPending returns pending records for an agent, oldest first.
func (s *DeadLetterStore) ListPending(ctx context.Context, agentID string, limit int) ([]*deadletter.DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*deadletter.DeadLetter
	for _, d := range s.records {
		if d.AgentID == agentID && d.Status == deadletter.StatusPending {
			out = append(out, cloneDeadLetter(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FailedAt.Before(out[j].FailedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StatsByAgent aggregates per-agent counts, ordered by agent ID.
func (s *DeadLetterStore) StatsByAgent(ctx context.Context) ([]deadletter.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byAgent := make(map[string]*deadletter.Stats)
	for _, d := range s.records {
		st, ok := byAgent[d.AgentID]
		if !ok {
			st = &deadletter.Stats{AgentID: d.AgentID}
			byAgent[d.AgentID] = st
		}
		switch d.Status {
		case deadletter.StatusPending:
			st.Pending++
		case deadletter.StatusReplayed:
			st.Replayed++
		case deadletter.StatusIgnored:
			st.Ignored++
		}
	}

	out := make([]deadletter.Stats, 0, len(byAgent))
	for _, st := range byAgent {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AgentID < out[j].AgentID
	})
	return out, nil
}

func cloneDeadLetter(d *deadletter.DeadLetter) *deadletter.DeadLetter {
	c := *d
	if d.Context != nil {
		c.Context = cloneDeadLetterContext(d.Context)
	}
	return &c
}

func cloneDeadLetterContext(dc *deadletter.Context) *deadletter.Context {
	c := *dc
	return &c
}

// Ensure DeadLetterStore implements deadletter.Store.
var _ deadletter.Store = (*DeadLetterStore)(nil)
