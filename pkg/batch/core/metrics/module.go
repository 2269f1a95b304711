package metrics

import (
	"go.uber.org/fx"
)

// Module provides the no-op recorder and tracer. Infrastructure modules decorate them
// with real backends when configured.
var Module = fx.Options(
	fx.Provide(
		NewNoOpMetricRecorder,
		NewNoOpTracer,
	),
)
