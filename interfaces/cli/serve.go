package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/reactor-go/application"
	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/domain/approval"
	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/domain/command"
	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
	"github.com/felixgeelhaar/reactor-go/infrastructure/bridge"
	"github.com/felixgeelhaar/reactor-go/infrastructure/config"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
	"github.com/felixgeelhaar/reactor-go/infrastructure/observability"
	"github.com/felixgeelhaar/reactor-go/infrastructure/queue"
	"github.com/felixgeelhaar/reactor-go/infrastructure/resilience"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/badger"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/memory"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/redis"
	"github.com/felixgeelhaar/reactor-go/infrastructure/storage/sqlite"
)

// serveOptions holds options for the serve command.
type serveOptions struct {
	configPath     string
	sqliteDSN      string
	badgerDir      string
	redisAddr      string
	postgresDSN    string
	expiryInterval time.Duration
	demo           bool
	demoInterval   time.Duration
}

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reactor runtime",
		Long: `Run the reactor runtime: the routing worker, the approval expiry
sweeper, and hot reload of the runtime configuration file.

Storage defaults to in-memory; flags select durable backends for the
audit trail (SQLite), dead letters (SQLite or Badger), checkpoints
(Redis), and approvals plus commands (PostgreSQL).

Agents are registered by embedding the runtime; --demo registers a
built-in pattern agent fed by a synthetic event generator so the full
pipeline can be observed without writing code.

Examples:
  # In-memory demo run
  reactor serve --demo

  # Durable single-node run with hot-reloaded overrides
  reactor serve -c reactor.yaml --sqlite "file:reactor.db?cache=shared&mode=rwc"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to runtime configuration file")
	cmd.Flags().StringVar(&opts.sqliteDSN, "sqlite", "", "SQLite DSN for the audit trail and dead letters")
	cmd.Flags().StringVar(&opts.badgerDir, "badger", "", "Badger directory for dead letters (overrides --sqlite for dead letters)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "Redis address for checkpoints (host:port)")
	cmd.Flags().StringVar(&opts.postgresDSN, "postgres", "", "PostgreSQL DSN for approvals and commands")
	cmd.Flags().DurationVar(&opts.expiryInterval, "expiry-interval", time.Minute, "Approval expiry sweep interval")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "Register the built-in demo agent and event generator")
	cmd.Flags().DurationVar(&opts.demoInterval, "demo-interval", 2*time.Second, "Demo event generation interval")

	return cmd
}

// serveStores holds the storage backends selected by flags.
type serveStores struct {
	checkpoints agent.CheckpointStore
	approvals   approval.Store
	commands    command.Store
	deadletters deadletter.Store
	trail       audit.Trail

	closers []func() error
}

func (s *serveStores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logging.Warn().
				Add(logging.Component("serve")).
				Add(logging.ErrorField(err)).
				Msg("storage close failed")
		}
	}
}

// buildStores wires the storage backends, defaulting to in-memory.
func buildStores(ctx context.Context, opts *serveOptions) (*serveStores, error) {
	s := &serveStores{
		checkpoints: memory.NewCheckpointStore(),
		approvals:   memory.NewApprovalStore(),
		commands:    memory.NewCommandStore(),
		deadletters: memory.NewDeadLetterStore(),
		trail:       memory.NewAuditTrail(),
	}

	if opts.sqliteDSN != "" {
		cfg := sqlite.DefaultConfig()
		cfg.DSN = opts.sqliteDSN

		trail, err := sqlite.NewAuditTrail(cfg)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("sqlite audit trail: %w", err)
		}
		s.trail = trail
		s.closers = append(s.closers, trail.Close)

		dls, err := sqlite.NewDeadLetterStore(cfg)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("sqlite dead letter store: %w", err)
		}
		s.deadletters = dls
		s.closers = append(s.closers, dls.Close)
	}

	if opts.badgerDir != "" {
		cfg := badger.DefaultConfig()
		cfg.Dir = opts.badgerDir

		dls, err := badger.NewDeadLetterStore(cfg)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("badger dead letter store: %w", err)
		}
		s.deadletters = dls
		s.closers = append(s.closers, dls.Close)
	}

	if opts.redisAddr != "" {
		cps, err := redis.NewCheckpointStore(redis.DefaultConfig(), redis.WithAddress(opts.redisAddr))
		if err != nil {
			s.close()
			return nil, fmt.Errorf("redis checkpoint store: %w", err)
		}
		s.checkpoints = cps
		s.closers = append(s.closers, cps.Close)
	}

	if opts.postgresDSN != "" {
		pool, err := pgxpool.New(ctx, opts.postgresDSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		s.approvals = postgres.NewApprovalStore(pool, "public")
		s.commands = postgres.NewCommandStore(pool, "public")
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
	}

	return s, nil
}

// serve runs the runtime until the context is cancelled.
func (a *App) serve(ctx context.Context, opts *serveOptions) error {
	var cfg *config.File
	loader := config.NewLoader()
	if opts.configPath != "" {
		loaded, err := loader.LoadFile(opts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	logCfg := logging.ProductionConfig()
	if cfg != nil {
		if cfg.LogLevel != "" {
			logCfg.Level = cfg.LogLevel
		}
		if cfg.LogFormat != "" {
			logCfg.Format = cfg.LogFormat
		}
	}
	logging.Init(logCfg)

	stores, err := buildStores(ctx, opts)
	if err != nil {
		return err
	}
	defer stores.close()

	stream := memory.NewEventStream()
	tasks := queue.NewMemoryQueue()
	defer func() { _ = tasks.Close() }()

	router := bridge.NewRouter(demoRegistry())
	if opts.demo {
		if err := registerDemoRoutes(router); err != nil {
			return err
		}
	}

	svc, err := application.NewService(application.ServiceConfig{
		Checkpoints: stores.checkpoints,
		Approvals:   stores.approvals,
		Commands:    stores.commands,
		DeadLetters: stores.deadletters,
		Trail:       stores.trail,
		Source:      stream,
		Reader:      stream,
		Tasks:       tasks,
		Router:      router,
		Pipeline:    &loggingPipeline{},
		Metrics:     observability.NewMetricsProvider(observability.DefaultMetricsConfig()),
		Recovery:    resilience.NewBreakerRecoveryPolicy(resilience.DefaultRecoveryConfig()),
	})
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}

	if opts.demo {
		if err := registerDemoAgent(ctx, svc); err != nil {
			return err
		}
	}

	// Apply the initial overrides after registration so the document
	// wins over code defaults.
	if cfg != nil {
		applyOverrides(ctx, svc, cfg)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := svc.RoutingWorker().Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(opts.expiryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := svc.ExpireDueApprovals(ctx, 100); err != nil {
					logging.Warn().
						Add(logging.Component("serve")).
						Add(logging.ErrorField(err)).
						Msg("approval expiry sweep failed")
				}
			}
		}
	})

	if opts.configPath != "" {
		watcher, err := config.NewWatcher(opts.configPath, loader, func(ctx context.Context, cfg *config.File) {
			applyOverrides(ctx, svc, cfg)
		})
		if err != nil {
			return fmt.Errorf("failed to watch configuration: %w", err)
		}
		g.Go(func() error {
			err := watcher.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if opts.demo {
		g.Go(func() error {
			runDemoGenerator(ctx, stream, opts.demoInterval)
			return nil
		})
	}

	fmt.Fprintf(a.stdout, "reactor runtime started\n")
	return g.Wait()
}

// applyOverrides pushes document overrides to every registered agent it
// names. Agents the runtime does not know are skipped; registration
// order between the document and the embedding code is not fixed.
func applyOverrides(ctx context.Context, svc *application.Service, cfg *config.File) {
	for agentID := range cfg.Agents {
		o, _ := cfg.OverridesFor(agentID)
		if err := svc.ReconfigureAgent(ctx, agentID, o); err != nil {
			if errors.Is(err, application.ErrAgentNotRegistered) {
				logging.Debug().
					Add(logging.AgentID(agentID)).
					Msg("override for unknown agent skipped")
				continue
			}
			logging.Warn().
				Add(logging.AgentID(agentID)).
				Add(logging.ErrorField(err)).
				Msg("override apply failed")
		}
	}
}
