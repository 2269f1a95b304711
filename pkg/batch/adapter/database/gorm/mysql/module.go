package mysql

import (
	"go.uber.org/fx"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database"
)

// Module registers the MySQL provider in the db_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	)),
)
