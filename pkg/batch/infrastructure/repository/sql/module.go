package sql

import (
	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
)

// Module provides the SQL store and job repository over the configured connections.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewStoreProvider, fx.As(new(repository.OrganizationStore))),
		fx.Annotate(NewJobRepositoryProvider, fx.As(new(repository.JobExecutionRepository))),
	),
)

// NewStoreProvider resolves the store_db_ref connection.
func NewStoreProvider(cfg *config.Config, resolver *gormadapter.ConnectionResolver) (*Store, error) {
	conn, err := resolver.Resolve(cfg.Digestor.Infrastructure.StoreDBRef)
	if err != nil {
		return nil, err
	}
	return NewStore(conn.GetGormDB()), nil
}

// NewJobRepositoryProvider resolves the job_repository_db_ref connection.
func NewJobRepositoryProvider(cfg *config.Config, resolver *gormadapter.ConnectionResolver) (*JobRepository, error) {
	conn, err := resolver.Resolve(cfg.Digestor.Infrastructure.JobRepositoryDBRef)
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.GetSQLDB()
	if err != nil {
		return nil, err
	}
	return NewJobRepository(sqlDB, conn.Type()), nil
}
