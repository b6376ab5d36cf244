package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/sqlite"
)

// auditOptions holds options for the audit command.
type auditOptions struct {
	sqliteDSN  string
	agentID    string
	decisionID string
	limit      int
	jsonOutput bool
}

// newAuditCmd creates the audit command.
func (a *App) newAuditCmd() *cobra.Command {
	opts := &auditOptions{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
		Long: `Read the append-only audit trail from a SQLite database.

Entries can be filtered by agent or followed across a single decision:
the decision ID joins pattern detection, approval, and routing outcome
into one story.

Examples:
  # Recent entries for one agent
  reactor audit --sqlite "file:reactor.db" --agent churn-watcher

  # Everything recorded for one decision
  reactor audit --sqlite "file:reactor.db" --decision 4f7c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showAudit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sqliteDSN, "sqlite", "", "SQLite DSN of the audit trail (required)")
	cmd.Flags().StringVar(&opts.agentID, "agent", "", "Filter by agent ID")
	cmd.Flags().StringVar(&opts.decisionID, "decision", "", "Filter by decision ID")
	cmd.Flags().IntVar(&opts.limit, "limit", 50, "Maximum entries to show")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output entries as JSON")

	_ = cmd.MarkFlagRequired("sqlite")

	return cmd
}

func (a *App) showAudit(cmd *cobra.Command, opts *auditOptions) error {
	if (opts.agentID == "") == (opts.decisionID == "") {
		return fmt.Errorf("exactly one of --agent or --decision is required")
	}

	cfg := sqlite.DefaultConfig()
	cfg.DSN = opts.sqliteDSN
	cfg.AutoMigrate = false

	trail, err := sqlite.NewAuditTrail(cfg)
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}
	defer func() { _ = trail.Close() }()

	ctx := cmd.Context()
	var entries []audit.Entry
	if opts.decisionID != "" {
		entries, err = trail.ByDecision(ctx, opts.decisionID)
	} else {
		entries, err = trail.ByAgent(ctx, opts.agentID, opts.limit)
	}
	if err != nil {
		return fmt.Errorf("failed to read audit trail: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintf(a.stdout, "No entries.\n")
		return nil
	}

	for _, e := range entries {
		fmt.Fprintf(a.stdout, "%s  %-28s  agent=%s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.AgentID)
		if e.DecisionID != "" {
			fmt.Fprintf(a.stdout, "  decision=%s", e.DecisionID)
		}
		fmt.Fprintln(a.stdout)
		if len(e.Payload) > 0 {
			fmt.Fprintf(a.stdout, "    %s\n", string(e.Payload))
		}
	}
	return nil
}
