package pattern

import (
	"testing"

	"github.com/felixgeelhaar/reactor-go/domain/event"
)

func typed(types ...string) []event.Event {
	events := make([]event.Event, len(types))
	for i, t := range types {
		events[i] = event.Event{ID: t, Type: t}
	}
	return events
}

func TestEventTypePresent(t *testing.T) {
	tests := []struct {
		name     string
		types    []string
		minCount int
		events   []event.Event
		want     bool
	}{
		{"single match", []string{"a"}, 1, typed("a", "b"), true},
		{"no match", []string{"c"}, 1, typed("a", "b"), false},
		{"below min count", []string{"a"}, 3, typed("a", "a"), false},
		{"at min count", []string{"a"}, 2, typed("a", "a"), true},
		{"counts across types", []string{"a", "b"}, 3, typed("a", "b", "a"), true},
		{"zero min count treated as one", []string{"a"}, 0, typed("a"), true},
		{"empty window", []string{"a"}, 1, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EventTypePresent(tt.types, tt.minCount)(tt.events); got != tt.want {
				t.Errorf("EventTypePresent(%v, %d) = %v, want %v", tt.types, tt.minCount, got, tt.want)
			}
		})
	}
}

func TestAll(t *testing.T) {
	yes := func([]event.Event) bool { return true }
	no := func([]event.Event) bool { return false }

	tests := []struct {
		name     string
		triggers []Trigger
		want     bool
	}{
		{"all true", []Trigger{yes, yes}, true},
		{"one false", []Trigger{yes, no}, false},
		{"empty never fires", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := All(tt.triggers...)(nil); got != tt.want {
				t.Errorf("All() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAny(t *testing.T) {
	yes := func([]event.Event) bool { return true }
	no := func([]event.Event) bool { return false }

	tests := []struct {
		name     string
		triggers []Trigger
		want     bool
	}{
		{"one true", []Trigger{no, yes}, true},
		{"all false", []Trigger{no, no}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Any(tt.triggers...)(nil); got != tt.want {
				t.Errorf("Any() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNot(t *testing.T) {
	yes := func([]event.Event) bool { return true }
	if Not(yes)(nil) {
		t.Error("Not(true) = true")
	}
}
