package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/reactor-go/domain/event"
)

func TestEventStreamAssignsMonotonicPositions(t *testing.T) {
	ctx := context.Background()
	stream := NewEventStream()

	for i := range 3 {
		e, err := stream.Append(ctx, event.Event{ID: fmt.Sprintf("ev-%d", i), StreamID: "orders"})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if e.GlobalPosition != int64(i) {
			t.Errorf("position = %d, want %d", e.GlobalPosition, i)
		}
	}
}

func TestEventStreamDeliversToSubscribers(t *testing.T) {
	ctx := context.Background()
	stream := NewEventStream()

	var seen []string
	err := stream.Subscribe(ctx, "sub-1", func(_ context.Context, e event.Event) error {
		seen = append(seen, e.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := stream.Append(ctx, event.Event{ID: "ev-1", StreamID: "orders"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := stream.Append(ctx, event.Event{ID: "ev-2", StreamID: "orders"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if len(seen) != 2 || seen[0] != "ev-1" || seen[1] != "ev-2" {
		t.Errorf("delivered = %v, want [ev-1 ev-2]", seen)
	}
}

func TestEventStreamRecent(t *testing.T) {
	ctx := context.Background()
	stream := NewEventStream()

	for i := range 5 {
		streamID := "orders"
		if i%2 == 1 {
			streamID = "payments"
		}
		if _, err := stream.Append(ctx, event.Event{ID: fmt.Sprintf("ev-%d", i), StreamID: streamID}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recent, err := stream.Recent(ctx, "orders", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	// Newest last.
	if recent[0].ID != "ev-2" || recent[1].ID != "ev-4" {
		t.Errorf("recent = %s, %s; want ev-2, ev-4", recent[0].ID, recent[1].ID)
	}
}
