package app

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage"
	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/engine/step/partition"
	"github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/export"
	infraMetrics "github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/migration"
	"github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/orgdigestor/pkg/batch/listener/notification"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

// memoryStoreType selects the in-memory store in a database section.
const memoryStoreType = "memory"

// UsesMemoryStore reports whether the store database is configured as "memory".
func UsesMemoryStore(cfg *config.Config) bool {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := configbinder.BindNamed(cfg.Digestor.DatabaseConfigs, cfg.Digestor.Infrastructure.StoreDBRef, &head); err != nil {
		return false
	}
	return head.Type == memoryStoreType
}

// databaseModule opens the relational connections through the dialect providers.
var databaseModule = fx.Options(
	gormadapter.Module,
	sqlite.Module,
	postgres.Module,
	mysql.Module,
)

// MigrateModule provides SchemaMigrations over the configured databases.
var MigrateModule = fx.Options(
	logger.Module,
	config.Module,
	databaseModule,
	fx.Provide(NewSchemaMigrations),
)

// DigestModule wires a digest job. A dry run keeps organizations and history in memory.
func DigestModule(cfg *config.Config, dryRun bool) fx.Option {
	store := fx.Options(
		databaseModule,
		sql.Module,
		fx.Provide(NewSchemaMigrations),
		fx.Invoke(migrateOnStart),
	)
	if dryRun || UsesMemoryStore(cfg) {
		logger.Infof("Dry run: organizations are kept in memory.")
		store = inmemory.Module
	}

	return fx.Options(
		logger.Module,
		config.Module,
		metrics.Module,
		infraMetrics.Module,
		storage.Module,
		local.Module,
		gcs.Module,
		notification.Module,
		export.Module,
		store,
		partition.Module,
	)
}

// SchemaMigrations migrates every database the digestor writes to.
type SchemaMigrations struct {
	migrators []*migration.Migrator
}

// NewSchemaMigrations resolves the store and job repository connections once each.
func NewSchemaMigrations(cfg *config.Config, resolver *gormadapter.ConnectionResolver) (*SchemaMigrations, error) {
	infra := cfg.Digestor.Infrastructure
	refs := []string{infra.StoreDBRef}
	if infra.JobRepositoryDBRef != infra.StoreDBRef {
		refs = append(refs, infra.JobRepositoryDBRef)
	}

	s := &SchemaMigrations{}
	for _, ref := range refs {
		conn, err := resolver.Resolve(ref)
		if err != nil {
			return nil, err
		}
		s.migrators = append(s.migrators, migration.NewMigrator(conn))
	}
	return s, nil
}

// Up migrates every database to the latest version.
func (s *SchemaMigrations) Up() error {
	var result *multierror.Error
	for _, m := range s.migrators {
		if err := m.Up(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Down rolls every database back.
func (s *SchemaMigrations) Down() error {
	var result *multierror.Error
	for _, m := range s.migrators {
		if err := m.Down(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func migrateOnStart(lc fx.Lifecycle, migrations *SchemaMigrations) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return migrations.Up() },
	})
}
