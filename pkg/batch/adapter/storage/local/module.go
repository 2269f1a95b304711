package local

import "go.uber.org/fx"

// Module registers the local provider in the "storage_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
