package sqlite

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/reactor-go/domain/audit"
)

func newTestAuditTrail(t *testing.T) *AuditTrail {
	t.Helper()
	trail, err := NewAuditTrail(testConfig(t.Name()))
	if err != nil {
		t.Fatalf("NewAuditTrail: %v", err)
	}
	t.Cleanup(func() { _ = trail.Close() })
	return trail
}

func TestSQLiteAuditTrailByDecision(t *testing.T) {
	ctx := context.Background()
	trail := newTestAuditTrail(t)

	entries := []audit.Entry{
		audit.NewEntry(audit.EntryDecisionMade, "agent-1", "dec-1", audit.DecisionMadeDetails{
			CommandType: "scale_service",
			Confidence:  0.82,
		}),
		audit.NewEntry(audit.EntryActionApproved, "agent-1", "dec-1", audit.ReviewDetails{
			ApprovalID: "ap-1",
			ReviewerID: "alice",
		}),
		audit.NewEntry(audit.EntryDecisionMade, "agent-2", "dec-2", nil),
	}
	for _, e := range entries {
		if err := trail.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := trail.ByDecision(ctx, "dec-1")
	if err != nil {
		t.Fatalf("ByDecision: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Type != audit.EntryDecisionMade || got[1].Type != audit.EntryActionApproved {
		t.Errorf("order wrong: %s, %s", got[0].Type, got[1].Type)
	}

	var details audit.DecisionMadeDetails
	if err := got[0].DecodePayload(&details); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if details.CommandType != "scale_service" || details.Confidence != 0.82 {
		t.Errorf("payload round trip lost data: %+v", details)
	}
}

func TestSQLiteAuditTrailByAgent(t *testing.T) {
	ctx := context.Background()
	trail := newTestAuditTrail(t)

	for range 4 {
		if err := trail.Append(ctx, audit.NewEntry(audit.EntryDecisionMade, "agent-1", "", nil)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	newest := audit.NewEntry(audit.EntryBudgetExceeded, "agent-1", "", nil)
	if err := trail.Append(ctx, newest); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := trail.ByAgent(ctx, "agent-1", 2)
	if err != nil {
		t.Fatalf("ByAgent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != newest.ID {
		t.Errorf("newest first violated: got %s", got[0].Type)
	}
}
