package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/domain/event"
)

func TestCheckpointStoreLoadMissing(t *testing.T) {
	store := NewCheckpointStore()

	_, err := store.Load(context.Background(), "agent-1", "sub-1")
	if !errors.Is(err, agent.ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestCheckpointStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewCheckpointStore()

	cp := agent.NewCheckpoint("agent-1", "sub-1")
	cp.Status = agent.StatusActive
	cp.Advance(event.Event{ID: "ev-1", GlobalPosition: 10})

	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "agent-1", "sub-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LastProcessedPosition != 10 {
		t.Errorf("position = %d, want 10", loaded.LastProcessedPosition)
	}
	if loaded.LastEventID != "ev-1" {
		t.Errorf("last event = %q, want ev-1", loaded.LastEventID)
	}
	if loaded.Status != agent.StatusActive {
		t.Errorf("status = %q, want active", loaded.Status)
	}

	// Mutating the loaded copy must not touch the stored record.
	loaded.Advance(event.Event{ID: "ev-2", GlobalPosition: 20})
	again, err := store.Load(ctx, "agent-1", "sub-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.LastProcessedPosition != 10 {
		t.Errorf("stored position mutated to %d", again.LastProcessedPosition)
	}
}

func TestCheckpointStoreRejectsRegression(t *testing.T) {
	ctx := context.Background()
	store := NewCheckpointStore()

	cp := agent.NewCheckpoint("agent-1", "sub-1")
	cp.Advance(event.Event{ID: "ev-5", GlobalPosition: 5})
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stale := agent.NewCheckpoint("agent-1", "sub-1")
	stale.Advance(event.Event{ID: "ev-3", GlobalPosition: 3})
	if err := store.Save(ctx, stale); err == nil {
		t.Fatal("expected regression save to fail")
	}

	// Same position is fine: status-only saves must pass.
	same := agent.NewCheckpoint("agent-1", "sub-1")
	same.Advance(event.Event{ID: "ev-5", GlobalPosition: 5})
	same.Status = agent.StatusPaused
	if err := store.Save(ctx, same); err != nil {
		t.Fatalf("equal-position save failed: %v", err)
	}
}

func TestCheckpointStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewCheckpointStore()

	for _, sub := range []string{"sub-b", "sub-a"} {
		if err := store.Save(ctx, agent.NewCheckpoint("agent-1", sub)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := store.Save(ctx, agent.NewCheckpoint("agent-2", "sub-x")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := store.List(ctx, "agent-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].SubscriptionID != "sub-a" || list[1].SubscriptionID != "sub-b" {
		t.Errorf("unexpected order: %s, %s", list[0].SubscriptionID, list[1].SubscriptionID)
	}
}
