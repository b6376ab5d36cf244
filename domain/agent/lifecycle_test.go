package agent

import (
	"errors"
	"strings"
	"testing"
)

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		from Status
		ev   LifecycleEvent
		to   Status
	}{
		{StatusStopped, EventStart, StatusActive},
		{StatusActive, EventPause, StatusPaused},
		{StatusActive, EventStop, StatusStopped},
		{StatusActive, EventEnterErrorRecovery, StatusErrorRecovery},
		{StatusActive, EventReconfigure, StatusActive},
		{StatusPaused, EventResume, StatusActive},
		{StatusPaused, EventStop, StatusStopped},
		{StatusPaused, EventReconfigure, StatusActive}, // implicit resume
		{StatusErrorRecovery, EventRecover, StatusActive},
		{StatusErrorRecovery, EventStop, StatusStopped},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.ev), func(t *testing.T) {
			got, err := Transition(tt.from, tt.ev)
			if err != nil {
				t.Fatalf("Transition(%s, %s) error: %v", tt.from, tt.ev, err)
			}
			if got != tt.to {
				t.Errorf("Transition(%s, %s) = %s, want %s", tt.from, tt.ev, got, tt.to)
			}
		})
	}
}

func TestTransition_Closure(t *testing.T) {
	// Every (state, event) pair outside the table fails and leaves the
	// state unchanged.
	allEvents := []LifecycleEvent{
		EventStart, EventPause, EventResume, EventStop,
		EventReconfigure, EventEnterErrorRecovery, EventRecover,
	}

	for _, from := range AllStatuses() {
		for _, ev := range allEvents {
			if CanTransition(from, ev) {
				continue
			}
			got, err := Transition(from, ev)
			if err == nil {
				t.Errorf("Transition(%s, %s) succeeded, want error", from, ev)
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Transition(%s, %s) error = %v, want ErrInvalidTransition", from, ev, err)
			}
			if got != from {
				t.Errorf("Transition(%s, %s) changed state to %s", from, ev, got)
			}
		}
	}
}

func TestTransition_ErrorNamesValidEvents(t *testing.T) {
	_, err := Transition(StatusStopped, EventPause)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), string(EventStart)) {
		t.Errorf("error %q does not name the valid event START", err)
	}
}

func TestTransition_StopIsUniversalEscape(t *testing.T) {
	for _, from := range AllStatuses() {
		if from == StatusStopped {
			continue
		}
		got, err := Transition(from, EventStop)
		if err != nil {
			t.Errorf("Transition(%s, STOP) error: %v", from, err)
		}
		if got != StatusStopped {
			t.Errorf("Transition(%s, STOP) = %s, want stopped", from, got)
		}
	}
}
