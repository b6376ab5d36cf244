package application

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/reactor-go/domain/command"
	"github.com/felixgeelhaar/reactor-go/infrastructure/bridge"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
	"github.com/felixgeelhaar/reactor-go/infrastructure/queue"
)

// RoutingWorker drains routing tasks from the queue and hands each
// recorded command to the bridge. The bridge is no-throw, so the worker
// only fails on queue or store problems.
type RoutingWorker struct {
	tasks    queue.Queue
	commands command.Store
	bridge   *bridge.Bridge
}

// NewRoutingWorker creates a routing worker.
func NewRoutingWorker(tasks queue.Queue, commands command.Store, b *bridge.Bridge) *RoutingWorker {
	return &RoutingWorker{
		tasks:    tasks,
		commands: commands,
		bridge:   b,
	}
}

// RoutingWorker returns a worker wired to the service's queue and bridge.
func (s *Service) RoutingWorker() *RoutingWorker {
	return NewRoutingWorker(s.tasks, s.commands, s.bridge)
}

// Run processes tasks until the context is cancelled or the queue
// closes.
func (w *RoutingWorker) Run(ctx context.Context) error {
	for {
		task, err := w.tasks.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			if errors.Is(err, queue.ErrQueueClosed) {
				return nil
			}
			logging.Warn().
				Add(logging.Component("routing-worker")).
				Add(logging.ErrorField(err)).
				Msg("dequeue failed")
			continue
		}
		w.handle(ctx, task)
	}
}

func (w *RoutingWorker) handle(ctx context.Context, task *queue.Task) {
	if task.Type != queue.TaskTypeRouteCommand {
		logging.Warn().
			Add(logging.Component("routing-worker")).
			Add(logging.Str("task_type", string(task.Type))).
			Msg("unknown task type dropped")
		return
	}

	var p queue.RouteCommandPayload
	if err := task.Unmarshal(&p); err != nil {
		logging.Error().
			Add(logging.Component("routing-worker")).
			Add(logging.Str("task_id", task.ID)).
			Add(logging.ErrorField(err)).
			Msg("routing task payload malformed")
		return
	}

	cmd, err := w.commands.GetByDecision(ctx, p.DecisionID)
	if err != nil {
		logging.Error().
			Add(logging.Component("routing-worker")).
			Add(logging.DecisionID(p.DecisionID)).
			Add(logging.ErrorField(err)).
			Msg("recorded command lookup failed")
		return
	}

	w.bridge.Route(ctx, cmd, bridge.RoutingContext{
		DecisionID:    p.DecisionID,
		AgentID:       p.AgentID,
		CorrelationID: p.CorrelationID,
		PatternID:     p.PatternID,
	})
}
