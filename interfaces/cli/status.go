package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/redis"
)

// statusOptions holds options for the status command.
type statusOptions struct {
	redisAddr  string
	agentID    string
	jsonOutput bool
}

// newStatusCmd creates the status command.
func (a *App) newStatusCmd() *cobra.Command {
	opts := &statusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an agent's checkpoint status",
		Long: `Show an agent's checkpoints from the Redis checkpoint store: lifecycle
status, last processed position, and processed-event count per
subscription.

Example:
  reactor status --redis localhost:6379 --agent churn-watcher`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showStatus(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "Redis address of the checkpoint store (required)")
	cmd.Flags().StringVar(&opts.agentID, "agent", "", "Agent ID (required)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output checkpoints as JSON")

	_ = cmd.MarkFlagRequired("redis")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func (a *App) showStatus(cmd *cobra.Command, opts *statusOptions) error {
	store, err := redis.NewCheckpointStore(redis.DefaultConfig(), redis.WithAddress(opts.redisAddr))
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer func() { _ = store.Close() }()

	cps, err := store.List(cmd.Context(), opts.agentID)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cps)
	}

	if len(cps) == 0 {
		fmt.Fprintf(a.stdout, "No checkpoints for %s.\n", opts.agentID)
		return nil
	}

	for _, cp := range cps {
		fmt.Fprintf(a.stdout, "%s / %s\n", cp.AgentID, cp.SubscriptionID)
		fmt.Fprintf(a.stdout, "  Status: %s\n", cp.Status)
		fmt.Fprintf(a.stdout, "  Position: %d\n", cp.LastProcessedPosition)
		fmt.Fprintf(a.stdout, "  Events processed: %d\n", cp.EventsProcessed)
		if !cp.UpdatedAt.IsZero() {
			fmt.Fprintf(a.stdout, "  Updated: %s\n", cp.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
