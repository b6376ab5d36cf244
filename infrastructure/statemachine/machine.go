// Package statemachine provides the statekit integration for the agent
// lifecycle.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
)

// Context carries the checkpoint through the lifecycle machine.
type Context struct {
	Checkpoint *agent.Checkpoint
}

// State IDs as StateID type for statekit.
const (
	stateStopped       statekit.StateID = statekit.StateID(agent.StatusStopped)
	stateActive        statekit.StateID = statekit.StateID(agent.StatusActive)
	statePaused        statekit.StateID = statekit.StateID(agent.StatusPaused)
	stateErrorRecovery statekit.StateID = statekit.StateID(agent.StatusErrorRecovery)
)

// NewLifecycleMachine creates the canonical lifecycle statechart. The
// statechart mirrors the domain transition table; the domain table
// remains the validation authority, the machine drives entry logging.
func NewLifecycleMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("agent-lifecycle").
		WithInitial(stateStopped).
		WithContext(&Context{}).
		WithAction("logEntry", logStateEntry).
		WithGuard("canTransition", guardCanTransition).
		State(stateStopped).
			OnEntry("logEntry").
			On(statekit.EventType(agent.EventStart)).Target(stateActive).Guard("canTransition").
			Done().
		State(stateActive).
			OnEntry("logEntry").
			On(statekit.EventType(agent.EventPause)).Target(statePaused).Guard("canTransition").
			On(statekit.EventType(agent.EventStop)).Target(stateStopped).Guard("canTransition").
			On(statekit.EventType(agent.EventEnterErrorRecovery)).Target(stateErrorRecovery).Guard("canTransition").
			On(statekit.EventType(agent.EventReconfigure)).Target(stateActive).Guard("canTransition").
			Done().
		State(statePaused).
			OnEntry("logEntry").
			On(statekit.EventType(agent.EventResume)).Target(stateActive).Guard("canTransition").
			On(statekit.EventType(agent.EventStop)).Target(stateStopped).Guard("canTransition").
			// RECONFIGURE implicitly resumes a paused agent.
			On(statekit.EventType(agent.EventReconfigure)).Target(stateActive).Guard("canTransition").
			Done().
		State(stateErrorRecovery).
			OnEntry("logEntry").
			On(statekit.EventType(agent.EventRecover)).Target(stateActive).Guard("canTransition").
			On(statekit.EventType(agent.EventStop)).Target(stateStopped).Guard("canTransition").
			Done().
		Build()
}

// StatusFromMachine converts the machine state ID to a domain Status.
func StatusFromMachine(stateID statekit.StateID) agent.Status {
	return agent.Status(stateID)
}
