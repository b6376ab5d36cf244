// Package pattern provides trigger evaluation over bounded event windows.
package pattern

import (
	"context"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/event"
)

// Window bounds the slice of events a trigger sees.
type Window struct {
	// Duration limits events to those within this span of the
	// reference time (the triggering event's timestamp).
	Duration time.Duration `json:"duration" yaml:"duration"`

	// MinEvents is the minimum number of in-window events required
	// before the trigger can fire at all.
	MinEvents int `json:"min_events" yaml:"min_events"`

	// EventLimit caps the number of events passed to the trigger.
	EventLimit int `json:"event_limit" yaml:"event_limit"`

	// LoadBatchSize is how many events to load per fetch when filling
	// the window.
	LoadBatchSize int `json:"load_batch_size" yaml:"load_batch_size"`
}

// DefaultWindow returns a window suitable for short-horizon patterns.
func DefaultWindow() Window {
	return Window{
		Duration:      24 * time.Hour,
		MinEvents:     1,
		EventLimit:    100,
		LoadBatchSize: 100,
	}
}

// Trigger is a pure predicate over an event slice. It must be free of
// side effects; the same slice always yields the same answer.
type Trigger func(events []event.Event) bool

// Analysis is the outcome of a deep analysis call.
type Analysis struct {
	// Confidence is the certainty that the pattern warrants action, in [0,1].
	Confidence float64 `json:"confidence"`

	// Reasoning explains the score.
	Reasoning string `json:"reasoning"`

	// Patterns lists sub-patterns the provider identified.
	Patterns []string `json:"patterns,omitempty"`

	// SuggestedAction optionally overrides the command payload.
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// Analyzer deepens a trigger match into a scored analysis. Analyzer
// calls are expected to block (LLM inference) and are the only
// operations subject to rate and cost governance.
type Analyzer func(ctx context.Context, events []event.Event) (Analysis, error)

// Definition is an immutable, code-defined pattern: a named
// trigger+analyze pair evaluated over a bounded window. Definitions
// are registered at agent-configuration time and evaluated in
// registration order; the first match wins.
type Definition struct {
	// Name identifies the pattern in decisions and audit entries.
	Name string `json:"name" yaml:"name"`

	// Window bounds the event slice the trigger sees.
	Window Window `json:"window" yaml:"window"`

	// Trigger decides whether the pattern fires.
	Trigger Trigger `json:"-" yaml:"-"`

	// Analyze optionally deepens the score. When absent or failing,
	// the rule-based fallback confidence is used.
	Analyze Analyzer `json:"-" yaml:"-"`

	// CommandType is the command emitted when the pattern fires.
	CommandType string `json:"command_type" yaml:"command_type"`
}

// Validate checks the definition is well formed.
func (d Definition) Validate() error {
	if d.Name == "" {
		return ErrUnnamedPattern
	}
	if d.Trigger == nil {
		return ErrNilTrigger
	}
	if d.CommandType == "" {
		return ErrNoCommandType
	}
	return nil
}

// Match is the result of a successful evaluation.
type Match struct {
	// Pattern is the definition that fired.
	Pattern Definition

	// Events is the in-window slice the trigger matched on.
	Events []event.Event
}

// EventIDs returns the IDs of the matched events.
func (m Match) EventIDs() []string {
	ids := make([]string, len(m.Events))
	for i, e := range m.Events {
		ids[i] = e.ID
	}
	return ids
}
