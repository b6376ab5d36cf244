package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/sqlite"
)

// deadLetterOptions holds options for the deadletters command.
type deadLetterOptions struct {
	sqliteDSN string
	agentID   string
	limit     int
}

// newDeadLettersCmd creates the deadletters command group.
func (a *App) newDeadLettersCmd() *cobra.Command {
	opts := &deadLetterOptions{}

	cmd := &cobra.Command{
		Use:   "deadletters",
		Short: "Inspect and manage dead-lettered events",
	}

	cmd.PersistentFlags().StringVar(&opts.sqliteDSN, "sqlite", "", "SQLite DSN of the dead letter store (required)")
	_ = cmd.MarkPersistentFlagRequired("sqlite")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show dead-letter counts per agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deadLetterStats(cmd, opts)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List an agent's pending dead letters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.agentID == "" {
				return fmt.Errorf("--agent is required")
			}
			return a.listDeadLetters(cmd, opts)
		},
	}
	list.Flags().StringVar(&opts.agentID, "agent", "", "Agent ID")
	list.Flags().IntVar(&opts.limit, "limit", 50, "Maximum dead letters to show")

	ignore := &cobra.Command{
		Use:   "ignore <agent-id> <event-id>",
		Short: "Write a pending dead letter off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ignoreDeadLetter(cmd, opts, args[0], args[1])
		},
	}

	cmd.AddCommand(stats, list, ignore)
	return cmd
}

func openDeadLetters(dsn string) (*sqlite.DeadLetterStore, error) {
	cfg := sqlite.DefaultConfig()
	cfg.DSN = dsn
	cfg.AutoMigrate = false

	store, err := sqlite.NewDeadLetterStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open dead letter store: %w", err)
	}
	return store, nil
}

func (a *App) deadLetterStats(cmd *cobra.Command, opts *deadLetterOptions) error {
	store, err := openDeadLetters(opts.sqliteDSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.StatsByAgent(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	if len(stats) == 0 {
		fmt.Fprintf(a.stdout, "No dead letters.\n")
		return nil
	}

	fmt.Fprintf(a.stdout, "%-30s %8s %9s %8s\n", "AGENT", "PENDING", "REPLAYED", "IGNORED")
	for _, s := range stats {
		fmt.Fprintf(a.stdout, "%-30s %8d %9d %8d\n", s.AgentID, s.Pending, s.Replayed, s.Ignored)
	}
	return nil
}

func (a *App) listDeadLetters(cmd *cobra.Command, opts *deadLetterOptions) error {
	store, err := openDeadLetters(opts.sqliteDSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	dls, err := store.ListPending(cmd.Context(), opts.agentID, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list dead letters: %w", err)
	}

	if len(dls) == 0 {
		fmt.Fprintf(a.stdout, "No pending dead letters for %s.\n", opts.agentID)
		return nil
	}

	for _, dl := range dls {
		fmt.Fprintf(a.stdout, "%s  event=%s attempts=%d\n", dl.FailedAt.Format("2006-01-02 15:04:05"), dl.EventID, dl.AttemptCount)
		fmt.Fprintf(a.stdout, "    %s\n", dl.Error)
	}
	return nil
}

func (a *App) ignoreDeadLetter(cmd *cobra.Command, opts *deadLetterOptions, agentID, eventID string) error {
	store, err := openDeadLetters(opts.sqliteDSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.UpdateStatus(cmd.Context(), agentID, eventID, deadletter.StatusIgnored); err != nil {
		return fmt.Errorf("failed to ignore dead letter: %w", err)
	}
	fmt.Fprintf(a.stdout, "Dead letter %s/%s ignored.\n", agentID, eventID)
	return nil
}
