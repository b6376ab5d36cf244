// Package queue provides the task hand-off between event processing
// and command routing. Routing runs fire-and-forget: a slow or failing
// routing step must never stall checkpoint advancement.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of asynchronous work.
type Task struct {
	ID        string          `json:"id"`
	Type      TaskType        `json:"type"`
	AgentID   string          `json:"agent_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Unmarshal decodes the task payload into the given value.
func (t *Task) Unmarshal(v any) error {
	return json.Unmarshal(t.Payload, v)
}

// TaskType categorizes tasks.
type TaskType string

const (
	// TaskTypeRouteCommand routes a recorded agent command through the
	// bridge to the host command pipeline.
	TaskTypeRouteCommand TaskType = "route_command"
)

// RouteCommandPayload is the payload for routing tasks.
type RouteCommandPayload struct {
	DecisionID    string `json:"decision_id"`
	CommandType   string `json:"command_type"`
	AgentID       string `json:"agent_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
	PatternID     string `json:"pattern_id,omitempty"`
}

// Queue is the scheduler hand-off: enqueue returns as soon as the task
// is accepted, with no ordering guarantee relative to the caller.
type Queue interface {
	// Enqueue adds a task to the queue.
	Enqueue(ctx context.Context, task Task) error

	// Dequeue retrieves the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Size returns the current number of queued tasks.
	Size(ctx context.Context) (int, error)

	// Close releases queue resources.
	Close() error
}

// Common errors.
var (
	ErrQueueClosed = errors.New("queue is closed")
)

// NewRouteCommandTask creates a routing task for a recorded command.
func NewRouteCommandTask(p RouteCommandPayload) (Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        uuid.New().String(),
		Type:      TaskTypeRouteCommand,
		AgentID:   p.AgentID,
		Payload:   data,
		CreatedAt: time.Now(),
	}, nil
}
