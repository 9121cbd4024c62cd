package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/spectra/internal/archive"
	"github.com/raysh454/spectra/internal/cli"
	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/scanner"
	"github.com/raysh454/spectra/internal/scanstore"
	"github.com/raysh454/spectra/internal/scanstore/postgres"
	"github.com/raysh454/spectra/internal/scanstore/sqlite"
)

// Application is the global runtime state container.
// It holds config, parsed CLI args and the core services that are shared
// across modules. Pass Application into modules that need access to the
// global state rather than using package-level variables.
type Application struct {
	Config *Config
	Args   *cli.CLIArgs

	Logger logging.Logger
	Store  scanstore.Store
	Runner *scanner.Runner
	Orch   *Orchestrator
}

// NewApplication opens the configured store, optionally connects the
// archive and builds the runner and orchestrator on top.
func NewApplication(ctx context.Context, cfg *Config, args *cli.CLIArgs, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		return nil, errors.New("app: nil logger provided")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := OpenStore(ctx, cfg.Store, logger.With(logging.Field{Key: "module", Value: "store"}))
	if err != nil {
		return nil, err
	}

	runnerCfg := &scanner.Config{
		Timing:  cfg.Scan.Timing(),
		Defects: scanner.NewDefectGenerator(cfg.Scan.Seed),
		Broker:  scanner.NewBroker(32),
	}
	if cfg.Archive.Enabled {
		arch, err := archive.New(ctx, cfg.Archive, logger.With(logging.Field{Key: "module", Value: "archive"}))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connecting archive: %w", err)
		}
		runnerCfg.Archiver = arch
	}

	runner, err := scanner.NewRunner(store, logger.With(logging.Field{Key: "module", Value: "runner"}), runnerCfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Application{
		Config: cfg,
		Args:   args,
		Logger: logger,
		Store:  store,
		Runner: runner,
		Orch:   NewOrchestrator(store, runner, nil, logger),
	}, nil
}

// OpenStore builds the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg StoreConfig, logger logging.Logger) (scanstore.Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		logger.Info("using in-memory scan store; records are lost on restart")
		return scanstore.NewMemoryStore(), nil
	case DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	case DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Shutdown stops the runner and closes the store. If in-flight scans do not
// return before ctx ends, the store is left open and ctx's error is returned.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	done := make(chan struct{})
	go func() {
		a.Orch.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Scans still inside a store call would fail on a closed store.
		a.Logger.Warn("runner did not stop before shutdown deadline; leaving store open",
			logging.Field{Key: "error", Value: ctx.Err()})
		return fmt.Errorf("shutdown: scans still running: %w", ctx.Err())
	}

	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
