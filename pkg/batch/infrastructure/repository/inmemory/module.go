package inmemory

import (
	"go.uber.org/fx"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
)

// Module provides the in-memory store and job repository. It replaces the SQL module for dry runs.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewStore, fx.As(new(repository.OrganizationStore))),
		fx.Annotate(NewJobRepository, fx.As(new(repository.JobExecutionRepository))),
	),
)
