package agent

import (
	"fmt"
	"sort"
	"strings"
)

// LifecycleEvent is a command applied to the lifecycle state machine.
type LifecycleEvent string

const (
	EventStart              LifecycleEvent = "START"
	EventPause              LifecycleEvent = "PAUSE"
	EventResume             LifecycleEvent = "RESUME"
	EventStop               LifecycleEvent = "STOP"
	EventReconfigure        LifecycleEvent = "RECONFIGURE"
	EventEnterErrorRecovery LifecycleEvent = "ENTER_ERROR_RECOVERY"
	EventRecover            LifecycleEvent = "RECOVER"
)

// lifecycleTransitions is the canonical transition table. STOP is
// reachable from every non-stopped state. RECONFIGURE from paused
// implicitly resumes to active.
var lifecycleTransitions = map[Status]map[LifecycleEvent]Status{
	StatusStopped: {
		EventStart: StatusActive,
	},
	StatusActive: {
		EventPause:              StatusPaused,
		EventStop:               StatusStopped,
		EventEnterErrorRecovery: StatusErrorRecovery,
		EventReconfigure:        StatusActive,
	},
	StatusPaused: {
		EventResume:      StatusActive,
		EventStop:        StatusStopped,
		EventReconfigure: StatusActive,
	},
	StatusErrorRecovery: {
		EventRecover: StatusActive,
		EventStop:    StatusStopped,
	},
}

// Transition applies a lifecycle event to the current status. An
// invalid transition fails with an error naming the valid events from
// the current state; it never silently no-ops.
func Transition(from Status, ev LifecycleEvent) (Status, error) {
	targets, ok := lifecycleTransitions[from]
	if !ok {
		return from, fmt.Errorf("%w: %q", ErrInvalidStatus, from)
	}

	to, ok := targets[ev]
	if !ok {
		return from, fmt.Errorf("%w: %s is not valid in state %s (valid: %s)",
			ErrInvalidTransition, ev, from, strings.Join(ValidEvents(from), ", "))
	}

	return to, nil
}

// CanTransition reports whether the event is valid in the given state.
func CanTransition(from Status, ev LifecycleEvent) bool {
	_, ok := lifecycleTransitions[from][ev]
	return ok
}

// ValidEvents returns the lifecycle events accepted in the given state,
// sorted for stable error messages.
func ValidEvents(from Status) []string {
	targets := lifecycleTransitions[from]
	events := make([]string, 0, len(targets))
	for ev := range targets {
		events = append(events, string(ev))
	}
	sort.Strings(events)
	return events
}

// RecoveryPolicy decides when repeated processing failures should trip
// the agent into error recovery and when it may recover. The precise
// thresholds are deployment policy, not a fixed constant.
type RecoveryPolicy interface {
	// RecordFailure notes a terminal processing failure and reports
	// whether the agent should enter error recovery.
	RecordFailure(agentID string) bool

	// RecordSuccess notes a successful processing pass and reports
	// whether a tripped agent may recover.
	RecordSuccess(agentID string) bool
}
