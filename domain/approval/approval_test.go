package approval

import (
	"errors"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func pendingApproval() *PendingApproval {
	return &PendingApproval{
		ApprovalID: "appr-1",
		AgentID:    "agent-1",
		DecisionID: "dec-1",
		Action:     Action{Type: "crm.flag_churn_risk"},
		Confidence: 0.55,
		Status:     StatusPending,
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now.Add(-time.Minute),
	}
}

func TestPendingApproval_Approve(t *testing.T) {
	a := pendingApproval()

	if err := a.Approve("reviewer-1", "looks right", now); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	if a.Status != StatusApproved {
		t.Errorf("Status = %s, want approved", a.Status)
	}
	if a.ReviewerID != "reviewer-1" || a.ReviewedAt == nil {
		t.Error("review metadata not recorded")
	}
}

func TestPendingApproval_ApproveRejectExclusive(t *testing.T) {
	// Approve and reject are mutually exclusive terminal outcomes.
	a := pendingApproval()
	if err := a.Approve("reviewer-1", "", now); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	if err := a.Reject("reviewer-2", "", now); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("Reject after approve error = %v, want ErrInvalidStatusTransition", err)
	}

	b := pendingApproval()
	if err := b.Reject("reviewer-1", "", now); err != nil {
		t.Fatalf("Reject() error: %v", err)
	}
	if err := b.Approve("reviewer-2", "", now); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("Approve after reject error = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestPendingApproval_ExpiryPrecedence(t *testing.T) {
	// Past expiry, an approval can only be expired.
	late := now.Add(2 * time.Hour)

	a := pendingApproval()
	if err := a.Approve("reviewer-1", "", late); !errors.Is(err, ErrApprovalExpired) {
		t.Errorf("Approve past expiry error = %v, want ErrApprovalExpired", err)
	}
	if a.Status != StatusPending {
		t.Errorf("failed approve changed status to %s", a.Status)
	}
	if a.ReviewerID != "" {
		t.Error("failed approve left partial state")
	}

	if err := a.Reject("reviewer-1", "", late); !errors.Is(err, ErrApprovalExpired) {
		t.Errorf("Reject past expiry error = %v, want ErrApprovalExpired", err)
	}

	if err := a.Expire(late); err != nil {
		t.Fatalf("Expire() error: %v", err)
	}
	if a.Status != StatusExpired {
		t.Errorf("Status = %s, want expired", a.Status)
	}
}

func TestPendingApproval_ExpireBeforeDeadline(t *testing.T) {
	a := pendingApproval()
	if err := a.Expire(now); !errors.Is(err, ErrNotYetExpired) {
		t.Errorf("Expire before deadline error = %v, want ErrNotYetExpired", err)
	}
}

func TestPendingApproval_ExpireAtExactDeadline(t *testing.T) {
	a := pendingApproval()
	// expiresAt <= now transitions to expired.
	if err := a.Expire(a.ExpiresAt); err != nil {
		t.Errorf("Expire at deadline error: %v", err)
	}
}

func TestPendingApproval_ReviewerRequired(t *testing.T) {
	a := pendingApproval()
	if err := a.Approve("", "", now); !errors.Is(err, ErrReviewerRequired) {
		t.Errorf("Approve without reviewer error = %v, want ErrReviewerRequired", err)
	}
}

func TestPendingApproval_Due(t *testing.T) {
	a := pendingApproval()
	if a.Due(now) {
		t.Error("approval due before deadline")
	}
	if !a.Due(a.ExpiresAt) {
		t.Error("approval not due at deadline")
	}

	_ = a.Approve("reviewer-1", "", now)
	if a.Due(now.Add(3 * time.Hour)) {
		t.Error("terminal approval reported due")
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusApproved, true},
		{StatusRejected, true},
		{StatusExpired, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("Status(%q).IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
