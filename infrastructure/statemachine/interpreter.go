package statemachine

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
)

// Interpreter wraps the statekit interpreter with lifecycle-specific
// functionality. Validation happens against the domain transition
// table before an event reaches the machine, so statekit never sees an
// invalid event.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter bound to a checkpoint.
func NewInterpreter(machine *statekit.MachineConfig[*Context], cp *agent.Checkpoint) *Interpreter {
	ctx := &Context{Checkpoint: cp}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start initializes the interpreter in the checkpoint's current state.
func (i *Interpreter) Start() error {
	i.interp.Start()
	if i.ctx.Checkpoint.Status == agent.StatusStopped {
		return nil
	}
	return i.restore(i.ctx.Checkpoint.Status)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// Status returns the current lifecycle state.
func (i *Interpreter) Status() agent.Status {
	return StatusFromMachine(i.interp.State().Value)
}

// Send applies a lifecycle event. Invalid events fail with the domain
// error naming the valid events; the machine state is untouched.
func (i *Interpreter) Send(ev agent.LifecycleEvent) error {
	next, err := agent.Transition(i.ctx.Checkpoint.Status, ev)
	if err != nil {
		return err
	}

	i.interp.Send(statekit.Event{Type: statekit.EventType(ev)})
	i.ctx.Checkpoint.Status = next
	return nil
}

// restore moves the interpreter to a persisted state.
func (i *Interpreter) restore(status agent.Status) error {
	snapshot := statekit.Snapshot[*Context]{
		MachineID:    "agent-lifecycle",
		CurrentState: statekit.StateID(string(status)),
		Context:      i.ctx,
		CreatedAt:    time.Now(),
	}

	if err := i.interp.Restore(snapshot); err != nil {
		return fmt.Errorf("failed to restore lifecycle state: %w", err)
	}
	return nil
}
