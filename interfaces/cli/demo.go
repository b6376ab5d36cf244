package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/reactor-go/application"
	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/domain/command"
	"github.com/felixgeelhaar/reactor-go/domain/event"
	"github.com/felixgeelhaar/reactor-go/domain/pattern"
	"github.com/felixgeelhaar/reactor-go/infrastructure/bridge"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/memory"
)

// The demo wires a complete pipeline out of the box: a generator feeds
// synthetic sensor readings, a pattern agent watches for bursts, and
// matched bursts become annotate commands. Short bursts score below the
// default threshold and park as pending approvals; sustained bursts
// score high enough to auto-execute.

const demoCommandType = "annotate_stream"

// demoRegistry answers route-target lookups for the demo pipeline.
type demoRegistryImpl struct{}

func (demoRegistryImpl) Has(commandType string) bool {
	return commandType == demoCommandType
}

func demoRegistry() command.Registry {
	return demoRegistryImpl{}
}

// loggingPipeline logs executed commands instead of calling a host.
type loggingPipeline struct{}

func (loggingPipeline) Execute(_ context.Context, commandType string, args json.RawMessage) (json.RawMessage, error) {
	logging.Info().
		Add(logging.Component("demo-pipeline")).
		Add(logging.CommandType(commandType)).
		Add(logging.Str("args", string(args))).
		Msg("command executed")
	return json.RawMessage(`{"status":"ok"}`), nil
}

func registerDemoRoutes(router *bridge.Router) error {
	return router.Register(demoCommandType, bridge.Route{
		Target: demoCommandType,
		ToArgs: func(cmd *command.Recorded, rc bridge.RoutingContext) (json.RawMessage, error) {
			return cmd.Payload, nil
		},
	})
}

func registerDemoAgent(ctx context.Context, svc *application.Service) error {
	cfg := agent.DefaultConfig("demo-observer", "demo-observer-sub")
	cfg.Handler = agent.Handler{Patterns: []pattern.Definition{
		{
			Name: "reading-burst",
			Window: pattern.Window{
				Duration:      5 * time.Minute,
				MinEvents:     3,
				EventLimit:    10,
				LoadBatchSize: 50,
			},
			Trigger: func(events []event.Event) bool {
				return len(events) >= 3
			},
			CommandType: demoCommandType,
		},
	}}

	if err := svc.Register(ctx, cfg); err != nil {
		return fmt.Errorf("demo agent registration: %w", err)
	}
	if err := svc.StartAgent(ctx, cfg.AgentID); err != nil {
		return fmt.Errorf("demo agent start: %w", err)
	}
	return nil
}

// runDemoGenerator appends a synthetic reading per tick until the
// context is cancelled.
func runDemoGenerator(ctx context.Context, stream *memory.EventStream, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	streams := []string{"sensor-a", "sensor-b"}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, _ := json.Marshal(map[string]any{
				"value": 40 + rand.IntN(20),
				"unit":  "celsius",
			})
			if _, err := stream.Append(ctx, event.Event{
				ID:        uuid.New().String(),
				Type:      "sensor_reading",
				StreamID:  streams[rand.IntN(len(streams))],
				Timestamp: time.Now(),
				Payload:   payload,
			}); err != nil {
				logging.Warn().
					Add(logging.Component("demo-generator")).
					Add(logging.ErrorField(err)).
					Msg("demo event append failed")
			}
		}
	}
}
