package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/approval"
)

// ApprovalStore implements approval.Store in memory.
type ApprovalStore struct {
	mu        sync.RWMutex
	approvals map[string]*approval.PendingApproval
}

// NewApprovalStore creates an in-memory approval store.
func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{
		approvals: make(map[string]*approval.PendingApproval),
	}
}

// Create inserts the approval. A duplicate approval ID is a no-op and
// returns created=false with no error.
func (s *ApprovalStore) Create(ctx context.Context, a *approval.PendingApproval) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.approvals[a.ApprovalID]; exists {
		return false, nil
	}

	s.approvals[a.ApprovalID] = cloneApproval(a)
	return true, nil
}

// Get returns the approval or ErrApprovalNotFound.
func (s *ApprovalStore) Get(ctx context.Context, approvalID string) (*approval.PendingApproval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.approvals[approvalID]
	if !ok {
		return nil, approval.ErrApprovalNotFound
	}
	return cloneApproval(a), nil
}

// Update persists a status transition. The stored record must still be
// pending; a reviewer losing the race gets ErrInvalidStatusTransition.
func (s *ApprovalStore) Update(ctx context.Context, a *approval.PendingApproval) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.approvals[a.ApprovalID]
	if !ok {
		return approval.ErrApprovalNotFound
	}
	if stored.Status != approval.StatusPending {
		return approval.ErrInvalidStatusTransition
	}

	s.approvals[a.ApprovalID] = cloneApproval(a)
	return nil
}

// ListPending returns pending approvals for an agent, oldest first.
func (s *ApprovalStore) ListPending(ctx context.Context, agentID string, limit int) ([]*approval.PendingApproval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*approval.PendingApproval
	for _, a := range s.approvals {
		if a.AgentID == agentID && a.Status == approval.StatusPending {
			out = append(out, cloneApproval(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListDue returns pending approvals past their deadline, oldest
// deadline first, bounded to limit.
func (s *ApprovalStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*approval.PendingApproval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*approval.PendingApproval
	for _, a := range s.approvals {
		if a.Due(now) {
			out = append(out, cloneApproval(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneApproval(a *approval.PendingApproval) *approval.PendingApproval {
	c := *a
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		c.ReviewedAt = &t
	}
	if a.TriggeringEventIDs != nil {
		c.TriggeringEventIDs = append([]string(nil), a.TriggeringEventIDs...)
	}
	return &c
}

// Ensure ApprovalStore implements approval.Store.
var _ approval.Store = (*ApprovalStore)(nil)
