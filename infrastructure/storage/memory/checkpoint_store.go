// Package memory provides in-memory storage implementations. Useful
// for testing and single-node deployments; all stores are safe for
// concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
)

// CheckpointStore implements agent.CheckpointStore in memory.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*agent.Checkpoint
}

// NewCheckpointStore creates an in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		checkpoints: make(map[string]*agent.Checkpoint),
	}
}

func checkpointKey(agentID, subscriptionID string) string {
	return agentID + "/" + subscriptionID
}

// Load returns the checkpoint for the pair, or ErrCheckpointNotFound.
func (s *CheckpointStore) Load(ctx context.Context, agentID, subscriptionID string) (*agent.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[checkpointKey(agentID, subscriptionID)]
	if !ok {
		return nil, agent.ErrCheckpointNotFound
	}
	return cloneCheckpoint(cp), nil
}

// Save persists the checkpoint, creating it if absent. A save whose
// position is below the stored one is rejected so advancement stays
// monotonic under races.
func (s *CheckpointStore) Save(ctx context.Context, cp *agent.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := checkpointKey(cp.AgentID, cp.SubscriptionID)
	if existing, ok := s.checkpoints[key]; ok {
		if cp.LastProcessedPosition < existing.LastProcessedPosition {
			return fmt.Errorf("checkpoint %s: position %d regresses stored %d",
				key, cp.LastProcessedPosition, existing.LastProcessedPosition)
		}
	}

	s.checkpoints[key] = cloneCheckpoint(cp)
	return nil
}

// List returns all checkpoints for an agent, ordered by subscription ID.
func (s *CheckpointStore) List(ctx context.Context, agentID string) ([]*agent.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*agent.Checkpoint
	for _, cp := range s.checkpoints {
		if cp.AgentID == agentID {
			out = append(out, cloneCheckpoint(cp))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubscriptionID < out[j].SubscriptionID
	})
	return out, nil
}

// cloneCheckpoint copies a checkpoint so callers never share state with
// the store.
func cloneCheckpoint(cp *agent.Checkpoint) *agent.Checkpoint {
	c := *cp
	if cp.ConfigOverrides != nil {
		o := &agent.Overrides{}
		o.Merge(*cp.ConfigOverrides)
		c.ConfigOverrides = o
	}
	return &c
}

// Ensure CheckpointStore implements agent.CheckpointStore.
var _ agent.CheckpointStore = (*CheckpointStore)(nil)
