package pattern

import (
	"fmt"
	"testing"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/event"
)

var reference = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func eventsOfType(eventType string, count int, age time.Duration) []event.Event {
	events := make([]event.Event, count)
	for i := range events {
		events[i] = event.Event{
			ID:        fmt.Sprintf("%s-%d", eventType, i),
			Type:      eventType,
			StreamID:  "customer-1",
			Timestamp: reference.Add(-age),
		}
	}
	return events
}

func TestEngine_EvaluateMinEvents(t *testing.T) {
	// Pattern with minEvents=3 and 2 matching events in the window must
	// never trigger, even with a qualifying event outside the window.
	def := Definition{
		Name: "churn-risk",
		Window: Window{
			Duration:   time.Hour,
			MinEvents:  3,
			EventLimit: 100,
		},
		Trigger:     func([]event.Event) bool { return true },
		CommandType: "crm.flag_churn_risk",
	}

	events := eventsOfType("support.ticket_opened", 2, 10*time.Minute)
	events = append(events, eventsOfType("support.ticket_opened", 1, 3*time.Hour)...)

	if _, ok := NewDefaultEngine().Evaluate(events, []Definition{def}, reference); ok {
		t.Error("pattern fired with fewer than MinEvents in-window events")
	}
}

func TestEngine_EvaluateFirstMatchWins(t *testing.T) {
	window := Window{Duration: time.Hour, MinEvents: 1, EventLimit: 10}
	first := Definition{
		Name:        "first",
		Window:      window,
		Trigger:     EventTypePresent([]string{"order.cancelled"}, 1),
		CommandType: "crm.follow_up",
	}
	second := Definition{
		Name:        "second",
		Window:      window,
		Trigger:     func([]event.Event) bool { return true },
		CommandType: "crm.flag_churn_risk",
	}

	events := eventsOfType("order.cancelled", 1, time.Minute)

	match, ok := NewDefaultEngine().Evaluate(events, []Definition{first, second}, reference)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.Pattern.Name != "first" {
		t.Errorf("matched %q, want first registered pattern", match.Pattern.Name)
	}
}

func TestEngine_EvaluateWindowCap(t *testing.T) {
	var seen int
	def := Definition{
		Name:   "capped",
		Window: Window{Duration: time.Hour, MinEvents: 1, EventLimit: 5},
		Trigger: func(events []event.Event) bool {
			seen = len(events)
			return true
		},
		CommandType: "crm.follow_up",
	}

	events := eventsOfType("order.placed", 20, time.Minute)

	if _, ok := NewDefaultEngine().Evaluate(events, []Definition{def}, reference); !ok {
		t.Fatal("expected a match")
	}
	if seen != 5 {
		t.Errorf("trigger saw %d events, want EventLimit 5", seen)
	}
}

func TestEngine_FallbackConfidenceMonotonic(t *testing.T) {
	eng := NewDefaultEngine()
	prev := 0.0

	for count := 1; count <= 20; count++ {
		m := Match{Events: eventsOfType("support.ticket_opened", count, 10*time.Minute)}
		got := eng.FallbackConfidence(m, reference)

		if got < prev {
			t.Fatalf("confidence decreased from %v to %v at count %d", prev, got, count)
		}
		if got < 0 || got > 1 {
			t.Fatalf("confidence %v outside [0,1] at count %d", got, count)
		}
		prev = got
	}
}

func TestEngine_FallbackConfidenceRecencyBoost(t *testing.T) {
	eng := NewDefaultEngine()

	recent := Match{Events: eventsOfType("support.ticket_opened", 3, 5*time.Minute)}
	stale := Match{Events: eventsOfType("support.ticket_opened", 3, 6*time.Hour)}

	if eng.FallbackConfidence(recent, reference) <= eng.FallbackConfidence(stale, reference) {
		t.Error("recent match should score above stale match of equal size")
	}
}

func TestEngine_FallbackConfidenceClamped(t *testing.T) {
	eng := NewEngine(FallbackConfig{
		Base:          0.9,
		PerEvent:      0.5,
		Ceiling:       5,
		RecencyWindow: time.Hour,
		RecencyBoost:  3,
	})

	m := Match{Events: eventsOfType("support.ticket_opened", 10, time.Minute)}
	if got := eng.FallbackConfidence(m, reference); got != 1 {
		t.Errorf("confidence = %v, want clamped to 1", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}

	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
