package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
)

func newDeadLetter(agentID, eventID, msg string) *deadletter.DeadLetter {
	return &deadletter.DeadLetter{
		AgentID:        agentID,
		EventID:        eventID,
		SubscriptionID: "sub-1",
		GlobalPosition: 42,
		Error:          msg,
		Status:         deadletter.StatusPending,
		FailedAt:       time.Now(),
	}
}

func TestDeadLetterStoreUpsertIncrementsAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()

	if err := store.Record(ctx, newDeadLetter("agent-1", "ev-1", "timeout")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, newDeadLetter("agent-1", "ev-1", "connection refused")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, "agent-1", "ev-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", got.AttemptCount)
	}
	if got.Error != "connection refused" {
		t.Errorf("error = %q, want latest failure", got.Error)
	}
	if got.Status != deadletter.StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestDeadLetterStoreRecordAfterTerminalStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()

	if err := store.Record(ctx, newDeadLetter("agent-1", "ev-1", "timeout")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.UpdateStatus(ctx, "agent-1", "ev-1", deadletter.StatusReplayed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	// Same event fails again after replay: a new pending record, not an
	// increment of the settled one.
	if err := store.Record(ctx, newDeadLetter("agent-1", "ev-1", "timeout again")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, "agent-1", "ev-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != deadletter.StatusPending || got.AttemptCount != 1 {
		t.Errorf("got status=%s attempts=%d, want pending/1", got.Status, got.AttemptCount)
	}
}

func TestDeadLetterStoreUpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()

	if err := store.Record(ctx, newDeadLetter("agent-1", "ev-1", "boom")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	tests := []struct {
		name    string
		eventID string
		target  deadletter.Status
		wantErr error
	}{
		{"to pending is invalid", "ev-1", deadletter.StatusPending, deadletter.ErrInvalidStatusTransition},
		{"missing record", "ev-nope", deadletter.StatusIgnored, deadletter.ErrDeadLetterNotFound},
		{"pending to ignored", "ev-1", deadletter.StatusIgnored, nil},
		{"terminal to replayed", "ev-1", deadletter.StatusReplayed, deadletter.ErrInvalidStatusTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.UpdateStatus(ctx, "agent-1", tt.eventID, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateStatus = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeadLetterStoreStatsByAgent(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()

	for _, d := range []*deadletter.DeadLetter{
		newDeadLetter("agent-b", "ev-1", "x"),
		newDeadLetter("agent-b", "ev-2", "x"),
		newDeadLetter("agent-a", "ev-3", "x"),
	} {
		if err := store.Record(ctx, d); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.UpdateStatus(ctx, "agent-b", "ev-2", deadletter.StatusIgnored); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	stats, err := store.StatsByAgent(ctx)
	if err != nil {
		t.Fatalf("StatsByAgent: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("len = %d, want 2", len(stats))
	}
	if stats[0].AgentID != "agent-a" || stats[0].Pending != 1 {
		t.Errorf("agent-a stats = %+v", stats[0])
	}
	if stats[1].AgentID != "agent-b" || stats[1].Pending != 1 || stats[1].Ignored != 1 || stats[1].Total() != 2 {
		t.Errorf("agent-b stats = %+v", stats[1])
	}
}
