package config

import "go.uber.org/fx"

// NewBatchConfigProvider exposes the batch section on its own.
func NewBatchConfigProvider(cfg *Config) *BatchConfig {
	return &cfg.Digestor.Batch
}

// Module provides the sections consumed on their own. The *Config itself is loaded
// before the container is built and supplied by the application.
var Module = fx.Options(
	fx.Provide(NewBatchConfigProvider),
)
