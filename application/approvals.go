package application

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/approval"
	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/domain/command"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
)

// ApproveAction approves a pending action and emits its command. The
// transition is the primary outcome: once the store accepts it, command
// emission and audit failures do not roll it back.
func (s *Service) ApproveAction(ctx context.Context, approvalID, reviewerID, note string) error {
	a, err := s.approvals.Get(ctx, approvalID)
	if err != nil {
		return err
	}

	now := s.now()
	if err := a.Approve(reviewerID, note, now); err != nil {
		return err
	}
	if err := s.approvals.Update(ctx, a); err != nil {
		return err
	}

	s.auditReview(ctx, audit.EntryActionApproved, a, reviewerID, note)
	s.metrics.RecordApprovalResolved(ctx, a.AgentID, string(approval.StatusApproved))

	rec := command.NewRecorded(a.AgentID, a.DecisionID, a.Action.Type, a.Action.Payload)
	rec.Confidence = a.Confidence
	rec.Reason = a.Reason
	rec.TriggeringEventIDs = a.TriggeringEventIDs

	if err := s.commands.Record(ctx, rec); err != nil {
		return fmt.Errorf("approval recorded but command emission failed: %w", err)
	}
	s.enqueueRouting(ctx, rec)

	logging.Info().
		Add(logging.AgentID(a.AgentID)).
		Add(logging.ApprovalID(approvalID)).
		Add(logging.DecisionID(a.DecisionID)).
		Add(logging.Str("reviewer_id", reviewerID)).
		Msg("action approved")
	return nil
}

// RejectAction rejects a pending action. No command is emitted.
func (s *Service) RejectAction(ctx context.Context, approvalID, reviewerID, note string) error {
	a, err := s.approvals.Get(ctx, approvalID)
	if err != nil {
		return err
	}

	now := s.now()
	if err := a.Reject(reviewerID, note, now); err != nil {
		return err
	}
	if err := s.approvals.Update(ctx, a); err != nil {
		return err
	}

	s.auditReview(ctx, audit.EntryActionRejected, a, reviewerID, note)
	s.metrics.RecordApprovalResolved(ctx, a.AgentID, string(approval.StatusRejected))

	logging.Info().
		Add(logging.AgentID(a.AgentID)).
		Add(logging.ApprovalID(approvalID)).
		Add(logging.Str("reviewer_id", reviewerID)).
		Msg("action rejected")
	return nil
}

// ExpireDueApprovals transitions pending approvals past their deadline
// to expired, bounded to limit per sweep. It returns the number expired.
func (s *Service) ExpireDueApprovals(ctx context.Context, limit int) (int, error) {
	now := s.now()
	due, err := s.approvals.ListDue(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list due approvals: %w", err)
	}

	expired := 0
	for _, a := range due {
		if err := a.Expire(now); err != nil {
			continue
		}
		if err := s.approvals.Update(ctx, a); err != nil {
			// A reviewer raced the sweep; the approval settled elsewhere.
			logging.Debug().
				Add(logging.ApprovalID(a.ApprovalID)).
				Add(logging.ErrorField(err)).
				Msg("expiry sweep lost update race")
			continue
		}

		s.auditReview(ctx, audit.EntryActionExpired, a, "", "")
		s.metrics.RecordApprovalResolved(ctx, a.AgentID, string(approval.StatusExpired))
		expired++
	}

	if expired > 0 {
		logging.Info().
			Add(logging.Int("expired", expired)).
			Msg("approvals expired")
	}
	return expired, nil
}

// PendingApprovals returns an agent's pending approvals, oldest first.
func (s *Service) PendingApprovals(ctx context.Context, agentID string, limit int) ([]*approval.PendingApproval, error) {
	return s.approvals.ListPending(ctx, agentID, limit)
}

// AbandonedApprovals returns pending approvals older than the staleness
// horizon, still short of expiry but apparently forgotten by reviewers.
func (s *Service) AbandonedApprovals(ctx context.Context, agentID string, olderThan time.Duration, limit int) ([]*approval.PendingApproval, error) {
	pending, err := s.approvals.ListPending(ctx, agentID, limit)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-olderThan)
	abandoned := make([]*approval.PendingApproval, 0, len(pending))
	for _, a := range pending {
		if a.CreatedAt.Before(cutoff) {
			abandoned = append(abandoned, a)
		}
	}
	return abandoned, nil
}

// auditReview appends an approval outcome entry, best-effort.
func (s *Service) auditReview(ctx context.Context, entryType audit.EntryType, a *approval.PendingApproval, reviewerID, note string) {
	entry := audit.NewEntry(entryType, a.AgentID, a.DecisionID, audit.ReviewDetails{
		ApprovalID: a.ApprovalID,
		ReviewerID: reviewerID,
		Note:       note,
	})
	if err := s.trail.Append(ctx, entry); err != nil {
		logging.Warn().
			Add(logging.AgentID(a.AgentID)).
			Add(logging.ApprovalID(a.ApprovalID)).
			Add(logging.ErrorField(err)).
			Msg("review audit append failed")
	}
}
