// Package agent provides the core domain model for agent subscriptions:
// the lifecycle state machine, processing checkpoints, and configuration.
package agent

// Status represents the lifecycle state of an agent subscription.
// Only StatusActive processes events; every other state causes incoming
// events to be seen-but-skipped so no backlog accumulates on resume.
type Status string

const (
	// StatusStopped is the initial state. It is restartable, not terminal.
	StatusStopped Status = "stopped"

	// StatusActive processes incoming events.
	StatusActive Status = "active"

	// StatusPaused skips incoming events while advancing the checkpoint.
	StatusPaused Status = "paused"

	// StatusErrorRecovery is entered when repeated failures trip the
	// recovery policy; events are skipped until RECOVER or STOP.
	StatusErrorRecovery Status = "error_recovery"
)

// IsValid returns true if the status is a recognized lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusStopped, StatusActive, StatusPaused, StatusErrorRecovery:
		return true
	default:
		return false
	}
}

// ProcessesEvents returns true if events are evaluated in this state.
func (s Status) ProcessesEvents() bool {
	return s == StatusActive
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// AllStatuses returns all lifecycle states.
func AllStatuses() []Status {
	return []Status{StatusStopped, StatusActive, StatusPaused, StatusErrorRecovery}
}
