package gorm

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the ConnectionResolver and closes all connections on shutdown.
// Dialect providers come from the sqlite, postgres and mysql sub-packages.
var Module = fx.Options(
	fx.Provide(NewConnectionResolver),
	fx.Invoke(func(lc fx.Lifecycle, r *ConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return r.CloseAll() },
		})
	}),
)
