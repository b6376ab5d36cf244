package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/felixgeelhaar/reactor-go/domain/command"
)

// CommandStore implements command.Store in memory.
type CommandStore struct {
	mu         sync.RWMutex
	commands   map[string]*command.Recorded
	byDecision map[string]string
}

// NewCommandStore creates an in-memory recorded command store.
func NewCommandStore() *CommandStore {
	return &CommandStore{
		commands:   make(map[string]*command.Recorded),
		byDecision: make(map[string]string),
	}
}

// Record inserts a recorded command.
func (s *CommandStore) Record(ctx context.Context, r *command.Recorded) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands[r.ID] = cloneRecorded(r)
	s.byDecision[r.DecisionID] = r.ID
	return nil
}

// Get returns the command or ErrCommandNotFound.
func (s *CommandStore) Get(ctx context.Context, id string) (*command.Recorded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.commands[id]
	if !ok {
		return nil, command.ErrCommandNotFound
	}
	return cloneRecorded(r), nil
}

// GetByDecision returns the command recorded for a decision.
func (s *CommandStore) GetByDecision(ctx context.Context, decisionID string) (*command.Recorded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDecision[decisionID]
	if !ok {
		return nil, command.ErrCommandNotFound
	}
	return cloneRecorded(s.commands[id]), nil
}

// UpdateStatus persists a status change.
func (s *CommandStore) UpdateStatus(ctx context.Context, r *command.Recorded) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.commands[r.ID]
	if !ok {
		return command.ErrCommandNotFound
	}
	stored.Status = r.Status
	stored.RoutingAttempts = r.RoutingAttempts
	stored.UpdatedAt = r.UpdatedAt
	return nil
}

// ListByAgent returns an agent's commands, newest first.
func (s *CommandStore) ListByAgent(ctx context.Context, agentID string, limit int) ([]*command.Recorded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*command.Recorded
	for _, r := range s.commands {
		if r.AgentID == agentID {
			out = append(out, cloneRecorded(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRecorded(r *command.Recorded) *command.Recorded {
	c := *r
	if r.Payload != nil {
		c.Payload = append([]byte(nil), r.Payload...)
	}
	if r.TriggeringEventIDs != nil {
		c.TriggeringEventIDs = append([]string(nil), r.TriggeringEventIDs...)
	}
	return &c
}

// Ensure CommandStore implements command.Store.
var _ command.Store = (*CommandStore)(nil)
