package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/config"
	"github.com/goran-ethernal/StarkIndexor/internal/db"
	"github.com/goran-ethernal/StarkIndexor/internal/handlers"
	"github.com/goran-ethernal/StarkIndexor/internal/jobs"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/metrics"
	"github.com/goran-ethernal/StarkIndexor/internal/rpc"
	"github.com/goran-ethernal/StarkIndexor/internal/source"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/internal/tokens"
	pkgconfig "github.com/goran-ethernal/StarkIndexor/pkg/config"
	pkgrpc "github.com/goran-ethernal/StarkIndexor/pkg/rpc"
	"github.com/spf13/cobra"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║          StarkIndexor v%s              ║
║   Starknet Game Economy Event Indexer     ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
	resetState bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "StarkIndexor - Starknet game economy indexer",
	Long: `StarkIndexor follows the AMM, farm, faucet and game session contracts of a
Starknet game economy, discovers child contracts from factory events and keeps
a queryable SQLite projection of their state. Scheduled jobs keep stake windows
and agent progression scores up to date.`,
	Version: version,
	RunE:    runIndexer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.Flags().BoolVar(&resetState, "reset", false,
		"delete all indexed state and restart from source.start_block")

	rootCmd.AddCommand(listCmd, replayCmd, scoreCmd, windowsCmd, schemaCmd)
}

// app holds the components shared by the commands.
type app struct {
	cfg         *pkgconfig.Config
	log         *logger.Logger
	store       *store.Store
	maintenance db.Maintenance
	client      *rpc.Client
	tokens      *tokens.Cache
	dispatcher  *handlers.Dispatcher
	syncManager *source.SyncManager
}

// bootstrap loads the configuration and opens the store. Without withRPC no node
// connection is made and token metadata falls back to defaults.
func bootstrap(ctx context.Context, withRPC bool) (*app, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetDefaultLogger(logger.NewComponentLoggerFromConfig(common.ComponentIndexer, cfg.Logging))
	log := logger.GetDefaultLogger()

	a := &app{cfg: cfg, log: log}

	a.store, err = store.Open(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	a.maintenance = db.NewMaintenanceCoordinator(
		cfg.DB.Path,
		a.store.DB(),
		cfg.Maintenance,
		logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging),
	)
	a.store.UseMaintenance(a.maintenance)

	if withRPC {
		log.Info("Connecting to Starknet node...")
		a.client, err = rpc.NewClient(ctx, cfg.RPC,
			logger.NewComponentLoggerFromConfig(common.ComponentRPC, cfg.Logging))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create RPC client: %w", err)
		}
		log.Infof("Connected to Starknet node: %s", cfg.RPC.URL)
	}

	a.tokens = tokens.NewCache(tokens.NewResolver(a.caller(),
		logger.NewComponentLoggerFromConfig(common.ComponentTokenResolver, cfg.Logging)))

	a.dispatcher, err = handlers.NewDispatcher(a.store, a.tokens, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	a.syncManager = source.NewSyncManager(a.store,
		logger.NewComponentLoggerFromConfig(common.ComponentSyncManager, cfg.Logging))

	return a, nil
}

// caller returns the node as a contract caller, or nil when running offline.
func (a *app) caller() pkgrpc.Caller {
	if a.client == nil {
		return nil
	}
	return a.client
}

func (a *app) Close() {
	if err := a.maintenance.Stop(); err != nil {
		a.log.Warnf("Failed to stop maintenance: %v", err)
	}
	if a.client != nil {
		a.client.Close()
	}
	if err := a.store.Close(); err != nil {
		a.log.Warnf("Failed to close store: %v", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n\nShutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func runIndexer(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	ctx, cancel := signalContext()
	defer cancel()

	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log

	// Initialize metrics server if enabled
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("Metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	if resetState {
		log.Warn("Resetting indexed state...")
		if err := a.syncManager.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset state: %w", err)
		}
	}

	if err := a.maintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start maintenance: %w", err)
	}

	log.Infof("Loading %d root contract(s)...", len(cfg.Contracts))
	if err := a.dispatcher.Load(ctx, cfg.Contracts); err != nil {
		return fmt.Errorf("failed to load contracts: %w", err)
	}

	poller, err := source.NewPoller(
		cfg.Source,
		a.client,
		a.dispatcher,
		a.syncManager,
		logger.NewComponentLoggerFromConfig(common.ComponentEventSource, cfg.Logging),
	)
	if err != nil {
		return fmt.Errorf("failed to create event source: %w", err)
	}
	a.dispatcher.Registrar().Subscribe(poller)

	scheduler, err := newScheduler(ctx, a)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warnf("Failed to stop scheduler: %v", err)
		}
	}()

	log.Info("Starting StarkIndexor...")
	metrics.ComponentHealthSet(common.ComponentIndexer, true)
	defer metrics.ComponentHealthSet(common.ComponentIndexer, false)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event source failed: %w", err)
	}

	log.Info("StarkIndexor stopped successfully")
	return nil
}

// newScheduler schedules the window job, which also runs at startup, and the scoring job
// unless it is disabled.
func newScheduler(ctx context.Context, a *app) (*jobs.Scheduler, error) {
	cfg := a.cfg

	scheduler, err := jobs.NewScheduler(logger.NewComponentLoggerFromConfig(common.ComponentScheduler, cfg.Logging))
	if err != nil {
		return nil, err
	}

	windowJob := jobs.NewWindowJob(a.store, nil,
		logger.NewComponentLoggerFromConfig(common.ComponentWindowJob, cfg.Logging))
	if err := scheduler.Add(ctx, windowJob, cfg.Jobs.WindowInterval.Duration, true); err != nil {
		return nil, err
	}

	if cfg.Jobs.DisableScoring {
		a.log.Info("Agent scoring is disabled")
		return scheduler, nil
	}

	if err := scheduler.Add(ctx, newScoringJob(a), cfg.Jobs.ScoringInterval.Duration, false); err != nil {
		return nil, err
	}

	return scheduler, nil
}

func newScoringJob(a *app) *jobs.ScoringJob {
	return jobs.NewScoringJob(
		a.store,
		a.caller(),
		a.cfg.Scoring,
		a.cfg.Jobs.ScoringConcurrency,
		nil,
		logger.NewComponentLoggerFromConfig(common.ComponentScoringJob, a.cfg.Logging),
	)
}
