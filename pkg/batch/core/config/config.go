// Package config holds the digestor configuration tree and its loader.
package config

import (
	"fmt"
	"runtime"
)

// EmbeddedConfig holds the raw application.yaml compiled into the binary.
type EmbeddedConfig []byte

// ItemRetryConfig configures the per-row retry of transient store failures.
type ItemRetryConfig struct {
	// MaxAttempts counts the first attempt, so 3 means two retries.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialInterval is the fixed delay between attempts in milliseconds.
	InitialInterval int `yaml:"initial_interval"`
	// RetryableExceptions names registered errors that are retried in addition to transient store errors.
	RetryableExceptions []string `yaml:"retryable_exceptions"`
}

// BatchConfig holds the settings of the digestion pipeline.
type BatchConfig struct {
	// RowsPerTask bounds the number of data rows per chunk.
	RowsPerTask int `yaml:"rows_per_task"`
	// MaxWorkers bounds how many chunks are processed concurrently.
	MaxWorkers int `yaml:"max_workers"`
	// ItemRetry is the row-level retry configuration.
	ItemRetry ItemRetryConfig `yaml:"item_retry"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File, when set, receives a JSON copy of every log record.
	File string `yaml:"file"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig names the adapter configurations used by each component.
type InfrastructureConfig struct {
	// StoreDBRef is the database holding organizations and reference entities.
	StoreDBRef string `yaml:"store_db_ref"`
	// JobRepositoryDBRef is the database holding digest job history.
	JobRepositoryDBRef string `yaml:"job_repository_db_ref"`
	// ChunkStorageRef is the storage connection used for chunk objects.
	ChunkStorageRef string `yaml:"chunk_storage_ref"`
}

// MetricsConfig selects the metric recorder.
type MetricsConfig struct {
	// Recorder is one of "noop", "prometheus", "otel".
	Recorder string `yaml:"recorder"`
	// TextfilePath, with the prometheus recorder, receives the registry in text exposition format after each job.
	TextfilePath string `yaml:"textfile_path"`
	// Protocol is "grpc" or "http" for the otel recorder.
	Protocol string `yaml:"protocol"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// TracingConfig selects the tracer.
type TracingConfig struct {
	// Exporter is one of "none", "otlpgrpc", "otlphttp".
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// NotificationConfig selects the completion notifier.
type NotificationConfig struct {
	// Type is "log" or "none".
	Type string `yaml:"type"`
}

// ReportConfig configures exported job reports.
type ReportConfig struct {
	// ParquetPath, when set, receives one parquet row per chunk outcome.
	ParquetPath string `yaml:"parquet_path"`
}

// DigestorConfig holds everything under the "digestor" top-level key.
type DigestorConfig struct {
	Batch          BatchConfig          `yaml:"batch"`
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Notification   NotificationConfig   `yaml:"notification"`
	Report         ReportConfig         `yaml:"report"`
	// DatabaseConfigs maps a connection name to its raw settings, decoded by the database providers.
	DatabaseConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs maps a connection name to its raw settings, decoded by the storage providers.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root of the application configuration.
type Config struct {
	Digestor       DigestorConfig `yaml:"digestor"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Digestor: DigestorConfig{
			Batch: BatchConfig{
				RowsPerTask: 10000,
				MaxWorkers:  runtime.NumCPU(),
				ItemRetry: ItemRetryConfig{
					MaxAttempts:     3,
					InitialInterval: 100,
				},
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Infrastructure: InfrastructureConfig{
				StoreDBRef:         "organizations",
				JobRepositoryDBRef: "organizations",
				ChunkStorageRef:    "chunks",
			},
			Metrics:         MetricsConfig{Recorder: "noop", Protocol: "grpc"},
			Tracing:         TracingConfig{Exporter: "none", ServiceName: "orgdigestor"},
			Notification:    NotificationConfig{Type: "log"},
			DatabaseConfigs: map[string]interface{}{},
			StorageConfigs:  map[string]interface{}{},
		},
	}
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	b := c.Digestor.Batch
	if b.RowsPerTask <= 0 {
		return fmt.Errorf("batch.rows_per_task must be positive, got %d", b.RowsPerTask)
	}
	if b.MaxWorkers <= 0 {
		return fmt.Errorf("batch.max_workers must be positive, got %d", b.MaxWorkers)
	}
	if b.ItemRetry.MaxAttempts < 1 {
		return fmt.Errorf("batch.item_retry.max_attempts must be at least 1, got %d", b.ItemRetry.MaxAttempts)
	}
	if b.ItemRetry.InitialInterval < 0 {
		return fmt.Errorf("batch.item_retry.initial_interval must not be negative, got %d", b.ItemRetry.InitialInterval)
	}
	return nil
}
