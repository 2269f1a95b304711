package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies of NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string              `name:"envFilePath" optional:"true"`
	Expander       EnvironmentExpander `optional:"true"`
}

// NewConfigProvider loads the configuration, applies the log level and validates the result.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	expander := params.Expander
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig, expander)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Digestor.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Digestor.System.Logging.Level)

	if err := checkExceptionClasses(cfg.Digestor.Batch.ItemRetry.RetryableExceptions); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to validate configured exception classes", err, false, false)
	}
	if err := cfg.Validate(); err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid configuration", err, false, false)
	}
	return cfg, nil
}

// LoadConfig builds a Config from defaults, the embedded YAML and the environment, in that order
// of increasing precedence. A .env file is loaded first when present.
func LoadConfig(envFilePath string, embedded EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	raw := []byte(embedded)
	if expander != nil {
		expanded, err := expander.Expand(raw)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
		}
		raw = expanded
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(raw, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}
	mergeDigestorConfig(&cfg.Digestor, &yamlConfig.Digestor)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	cfg.EmbeddedConfig = embedded
	return cfg, nil
}

// mergeDigestorConfig copies every non-zero value of source over dest.
func mergeDigestorConfig(dest, source *DigestorConfig) {
	b, sb := &dest.Batch, &source.Batch
	if sb.RowsPerTask != 0 {
		b.RowsPerTask = sb.RowsPerTask
	}
	if sb.MaxWorkers != 0 {
		b.MaxWorkers = sb.MaxWorkers
	}
	if sb.ItemRetry.MaxAttempts != 0 {
		b.ItemRetry.MaxAttempts = sb.ItemRetry.MaxAttempts
	}
	if sb.ItemRetry.InitialInterval != 0 {
		b.ItemRetry.InitialInterval = sb.ItemRetry.InitialInterval
	}
	if sb.ItemRetry.RetryableExceptions != nil {
		b.ItemRetry.RetryableExceptions = sb.ItemRetry.RetryableExceptions
	}

	mergeString(&dest.System.Timezone, source.System.Timezone)
	mergeString(&dest.System.Logging.Level, source.System.Logging.Level)
	mergeString(&dest.System.Logging.File, source.System.Logging.File)

	mergeString(&dest.Infrastructure.StoreDBRef, source.Infrastructure.StoreDBRef)
	mergeString(&dest.Infrastructure.JobRepositoryDBRef, source.Infrastructure.JobRepositoryDBRef)
	mergeString(&dest.Infrastructure.ChunkStorageRef, source.Infrastructure.ChunkStorageRef)

	mergeString(&dest.Metrics.Recorder, source.Metrics.Recorder)
	mergeString(&dest.Metrics.TextfilePath, source.Metrics.TextfilePath)
	mergeString(&dest.Metrics.Protocol, source.Metrics.Protocol)
	mergeString(&dest.Metrics.Endpoint, source.Metrics.Endpoint)
	dest.Metrics.Insecure = dest.Metrics.Insecure || source.Metrics.Insecure

	mergeString(&dest.Tracing.Exporter, source.Tracing.Exporter)
	mergeString(&dest.Tracing.Endpoint, source.Tracing.Endpoint)
	mergeString(&dest.Tracing.ServiceName, source.Tracing.ServiceName)
	dest.Tracing.Insecure = dest.Tracing.Insecure || source.Tracing.Insecure

	mergeString(&dest.Notification.Type, source.Notification.Type)
	mergeString(&dest.Report.ParquetPath, source.Report.ParquetPath)

	mergeMap(&dest.DatabaseConfigs, source.DatabaseConfigs)
	mergeMap(&dest.StorageConfigs, source.StorageConfigs)
}

func mergeString(dest *string, source string) {
	if source != "" {
		*dest = source
	}
}

func mergeMap(dest *map[string]interface{}, source map[string]interface{}) {
	if source == nil {
		return
	}
	if *dest == nil {
		*dest = make(map[string]interface{}, len(source))
	}
	for k, v := range source {
		(*dest)[k] = v
	}
}

// checkExceptionClasses verifies that every configured name is registered.
func checkExceptionClasses(classNames []string) error {
	for _, name := range classNames {
		if !exception.IsErrorTypeRegistered(name) {
			return fmt.Errorf("item_retry references unknown exception class '%s'", name)
		}
	}
	return nil
}

// loadStructFromEnv overrides struct fields from environment variables named after the
// upper-cased yaml tag path, e.g. DIGESTOR_BATCH_ROWS_PER_TASK.
// Map fields are skipped; adapter sections are expanded from ${VAR} placeholders instead.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}
