package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/reactor-go/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a runtime configuration file",
		Long: `Validate a runtime configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Override constraints (thresholds, TTLs, rate limits, budgets)
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  reactor validate -c reactor.yaml

  # Strict validation (fail on missing env vars)
  reactor validate -c reactor.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	loaderOpts := []config.LoaderOption{
		config.WithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, config.WithStrictEnv(true))
	}

	loader := config.NewLoaderWithOptions(loaderOpts...)
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	if cfg.LogLevel != "" {
		fmt.Fprintf(a.stdout, "  Log level: %s\n", cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		fmt.Fprintf(a.stdout, "  Log format: %s\n", cfg.LogFormat)
	}

	if len(cfg.Agents) == 0 {
		fmt.Fprintf(a.stdout, "  Agent overrides: none\n")
		return nil
	}

	ids := make([]string, 0, len(cfg.Agents))
	for id := range cfg.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(a.stdout, "\nAgent overrides:\n")
	for _, id := range ids {
		o := cfg.Agents[id]
		fmt.Fprintf(a.stdout, "  %s:\n", id)
		if o.ConfidenceThreshold != nil {
			fmt.Fprintf(a.stdout, "    confidence_threshold: %.2f\n", *o.ConfidenceThreshold)
		}
		if o.ApprovalTTL != nil {
			fmt.Fprintf(a.stdout, "    approval_ttl: %s\n", time.Duration(*o.ApprovalTTL))
		}
		if o.MaxAttempts != nil {
			fmt.Fprintf(a.stdout, "    max_attempts: %d\n", *o.MaxAttempts)
		}
		if len(o.RequireApproval) > 0 {
			fmt.Fprintf(a.stdout, "    require_approval: %v\n", o.RequireApproval)
		}
		if len(o.AutoApprove) > 0 {
			fmt.Fprintf(a.stdout, "    auto_approve: %v\n", o.AutoApprove)
		}
		if o.RateLimits != nil {
			fmt.Fprintf(a.stdout, "    rate_limits: overridden\n")
		}
		if o.CostBudget != nil {
			fmt.Fprintf(a.stdout, "    cost_budget: overridden\n")
		}
	}

	return nil
}
