package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for agent subsystem logging.

// AgentID adds an agent ID field.
func AgentID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("agent_id", id)
	}
}

// SubscriptionID adds a subscription ID field.
func SubscriptionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("subscription_id", id)
	}
}

// EventID adds an event ID field.
func EventID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("event_id", id)
	}
}

// DecisionID adds a decision ID field.
func DecisionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("decision_id", id)
	}
}

// ApprovalID adds an approval ID field.
func ApprovalID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("approval_id", id)
	}
}

// CommandType adds a command type field.
func CommandType(t string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("command_type", t)
	}
}

// Pattern adds a pattern name field.
func Pattern(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("pattern", name)
	}
}

// Status adds a lifecycle status field.
func Status(s agent.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// Lifecycle adds a lifecycle event field.
func Lifecycle(ev agent.LifecycleEvent) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("lifecycle_event", string(ev))
	}
}

// Position adds a global position field.
func Position(pos int64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("global_position", pos)
	}
}

// Confidence adds a confidence field.
func Confidence(c float64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Float64("confidence", c)
	}
}

// Attempts adds an attempt count field.
func Attempts(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempts", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an int field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}
