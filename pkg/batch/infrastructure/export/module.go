package export

import (
	"go.uber.org/fx"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/ports"
)

// ExporterResult carries the optional exporter.
type ExporterResult struct {
	fx.Out
	Exporter ports.ReportExporter
}

// NewExporterProvider returns a parquet writer when report.parquet_path is set.
func NewExporterProvider(cfg *config.Config) ExporterResult {
	if cfg.Digestor.Report.ParquetPath == "" {
		return ExporterResult{}
	}
	return ExporterResult{Exporter: NewParquetReportWriter(cfg.Digestor.Report.ParquetPath)}
}

var Module = fx.Options(fx.Provide(NewExporterProvider))
