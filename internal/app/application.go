// Package app assembles the digestor from the pkg/batch modules and runs one command
// (a digest job or a schema migration) inside an fx container.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/engine/step/partition"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

const stopTimeout = 30 * time.Second

// Options carries the command line settings. Zero values keep the configured ones.
type Options struct {
	EnvFilePath    string
	EmbeddedConfig config.EmbeddedConfig
	RowsPerTask    int
	Workers        int
	DryRun         bool
}

// LoadConfig loads the configuration, applies the command line overrides and sets up logging.
// The returned closer releases the log file.
func LoadConfig(opts Options) (*config.Config, io.Closer, error) {
	cfg, err := config.NewConfigProvider(config.ConfigParams{
		EmbeddedConfig: opts.EmbeddedConfig,
		EnvFilePath:    opts.EnvFilePath,
	})
	if err != nil {
		return nil, nil, err
	}
	if opts.RowsPerTask != 0 {
		cfg.Digestor.Batch.RowsPerTask = opts.RowsPerTask
	}
	if opts.Workers != 0 {
		cfg.Digestor.Batch.MaxWorkers = opts.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logging := cfg.Digestor.System.Logging
	closer, err := logger.Setup(logging.Level, logging.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, closer, nil
}

// Digest runs one digest job over source and returns its summary.
func Digest(ctx context.Context, opts Options, source string) (*model.SummaryReport, error) {
	cfg, closer, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var orchestrator *partition.Orchestrator
	app := fx.New(
		fx.Supply(cfg),
		DigestModule(cfg, opts.DryRun),
		fx.Populate(&orchestrator),
	)

	var summary *model.SummaryReport
	err = run(ctx, app, func() error {
		var runErr error
		summary, runErr = orchestrator.Run(ctx, source, cfg.Digestor.Batch.RowsPerTask)
		return runErr
	})
	return summary, err
}

// Migrate applies (or, with down, rolls back) the schema of the configured databases.
func Migrate(ctx context.Context, opts Options, down bool) error {
	cfg, closer, err := LoadConfig(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	if UsesMemoryStore(cfg) {
		logger.Infof("Store '%s' is in memory, nothing to migrate.", cfg.Digestor.Infrastructure.StoreDBRef)
		return nil
	}

	var migrations *SchemaMigrations
	app := fx.New(
		fx.Supply(cfg),
		MigrateModule,
		fx.Populate(&migrations),
	)
	return run(ctx, app, func() error {
		if down {
			return migrations.Down()
		}
		return migrations.Up()
	})
}

// run starts app, executes fn and stops app whatever fn returned.
func run(ctx context.Context, app *fx.App, fn func() error) (err error) {
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if stopErr := app.Stop(stopCtx); stopErr != nil {
			logger.Errorf("Failed to stop application: %v", stopErr)
			if err == nil {
				err = stopErr
			}
		}
	}()
	return fn()
}
