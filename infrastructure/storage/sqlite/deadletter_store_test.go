package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
)

func testConfig(name string) Config {
	cfg := DefaultConfig()
	cfg.DSN = "file:" + name + "?mode=memory&cache=shared"
	cfg.JournalMode = ""
	return cfg
}

func newTestDeadLetterStore(t *testing.T) *DeadLetterStore {
	t.Helper()
	store, err := NewDeadLetterStore(testConfig(t.Name()))
	if err != nil {
		t.Fatalf("NewDeadLetterStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func deadLetterFixture(eventID, msg string) *deadletter.DeadLetter {
	return &deadletter.DeadLetter{
		AgentID:        "agent-1",
		EventID:        eventID,
		SubscriptionID: "sub-1",
		GlobalPosition: 3,
		Error:          msg,
		Status:         deadletter.StatusPending,
		FailedAt:       time.Now(),
		Context:        &deadletter.Context{ErrorCode: "TIMEOUT"},
	}
}

func TestSQLiteDeadLetterUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestDeadLetterStore(t)

	if err := store.Record(ctx, deadLetterFixture("ev-1", "timeout")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, deadLetterFixture("ev-1", "refused")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, "agent-1", "ev-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", got.AttemptCount)
	}
	if got.Error != "refused" {
		t.Errorf("error = %q, want latest", got.Error)
	}
	if got.Context == nil || got.Context.ErrorCode != "TIMEOUT" {
		t.Errorf("context lost: %+v", got.Context)
	}
}

func TestSQLiteDeadLetterFreshAfterTerminal(t *testing.T) {
	ctx := context.Background()
	store := newTestDeadLetterStore(t)

	if err := store.Record(ctx, deadLetterFixture("ev-1", "boom")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.UpdateStatus(ctx, "agent-1", "ev-1", deadletter.StatusReplayed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.Record(ctx, deadLetterFixture("ev-1", "boom again")); err != nil {
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

func TestSQLiteDeadLetterUpdateStatusGuards(t *testing.T) {
	ctx := context.Background()
	store := newTestDeadLetterStore(t)

	if err := store.Record(ctx, deadLetterFixture("ev-1", "boom")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := store.UpdateStatus(ctx, "agent-1", "ev-1", deadletter.StatusPending); !errors.Is(err, deadletter.ErrInvalidStatusTransition) {
		t.Errorf("to pending = %v, want ErrInvalidStatusTransition", err)
	}
	if err := store.UpdateStatus(ctx, "agent-1", "ev-x", deadletter.StatusIgnored); !errors.Is(err, deadletter.ErrDeadLetterNotFound) {
		t.Errorf("missing = %v, want ErrDeadLetterNotFound", err)
	}
	if err := store.UpdateStatus(ctx, "agent-1", "ev-1", deadletter.StatusIgnored); err != nil {
		t.Errorf("pending to ignored = %v", err)
	}
	if err := store.UpdateStatus(ctx, "agent-1", "ev-1", deadletter.StatusReplayed); !errors.Is(err, deadletter.ErrInvalidStatusTransition) {
		t.Errorf("terminal transition = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestSQLiteDeadLetterStats(t *testing.T) {
	ctx := context.Background()
	store := newTestDeadLetterStore(t)

	for _, eventID := range []string{"ev-1", "ev-2", "ev-3"} {
		if err := store.Record(ctx, deadLetterFixture(eventID, "x")); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.UpdateStatus(ctx, "agent-1", "ev-2", deadletter.StatusReplayed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	stats, err := store.StatsByAgent(ctx)
	if err != nil {
		t.Fatalf("StatsByAgent: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("stats len = %d, want 1", len(stats))
	}
	if stats[0].Pending != 2 || stats[0].Replayed != 1 || stats[0].Total() != 3 {
		t.Errorf("stats = %+v", stats[0])
	}
}
