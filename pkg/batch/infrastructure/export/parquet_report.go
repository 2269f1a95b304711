// Package export writes job reports for offline analysis.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/ports"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

const (
	moduleName = "export"
	// JobIDPlaceholder in the configured path is replaced by the job ID.
	JobIDPlaceholder = "{job_id}"
)

// ChunkRecord is one parquet row: the outcome of one chunk.
type ChunkRecord struct {
	JobID      string `parquet:"name=job_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ChunkIndex int32  `parquet:"name=chunk_index, type=INT32"`
	Rows       int32  `parquet:"name=rows, type=INT32"`
	Created    int32  `parquet:"name=created, type=INT32"`
	Updated    int32  `parquet:"name=updated, type=INT32"`
	Errors     int32  `parquet:"name=errors, type=INT32"`
	Lost       bool   `parquet:"name=lost, type=BOOLEAN"`
	Message    string `parquet:"name=message, type=BYTE_ARRAY, convertedtype=UTF8"`
	ExportedAt int64  `parquet:"name=exported_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// ParquetReportWriter writes one parquet file per job. Lost chunks get a row with Lost set.
type ParquetReportWriter struct {
	path        string
	compression parquet.CompressionCodec
}

var _ ports.ReportExporter = (*ParquetReportWriter)(nil)

func NewParquetReportWriter(path string) *ParquetReportWriter {
	return &ParquetReportWriter{path: path, compression: parquet.CompressionCodec_SNAPPY}
}

// Path returns the file written for jobID.
func (w *ParquetReportWriter) Path(jobID string) string {
	return strings.ReplaceAll(w.path, JobIDPlaceholder, jobID)
}

func (w *ParquetReportWriter) ExportReport(ctx context.Context, summary *model.SummaryReport, chunks []model.ChunkReport) (err error) {
	path := w.Path(summary.JobID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exception.NewBatchError(moduleName, "failed to create report directory", err, false, false)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to create '%s'", path), err, false, false)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(ChunkRecord), 1)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to create parquet writer", err, false, false)
	}
	pw.CompressionType = w.compression

	for _, rec := range records(summary, chunks, time.Now()) {
		if err := pw.Write(rec); err != nil {
			return exception.NewBatchError(moduleName, fmt.Sprintf("failed to write chunk %d", rec.ChunkIndex), err, false, false)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return exception.NewBatchError(moduleName, "failed to finalize parquet file", err, false, false)
	}
	logger.Infof("Report of job %s written to %s.", summary.JobID, path)
	return nil
}

func records(summary *model.SummaryReport, chunks []model.ChunkReport, now time.Time) []ChunkRecord {
	at := now.UnixMilli()
	out := make([]ChunkRecord, 0, len(chunks)+len(summary.LostChunks))
	for _, c := range chunks {
		out = append(out, ChunkRecord{
			JobID:      summary.JobID,
			ChunkIndex: int32(c.ChunkIndex),
			Rows:       int32(c.Rows),
			Created:    int32(c.Created),
			Updated:    int32(c.Updated),
			Errors:     int32(c.Errors),
			Message:    strings.Join(c.ErrorMessages, "\n"),
			ExportedAt: at,
		})
	}
	for _, l := range summary.LostChunks {
		out = append(out, ChunkRecord{
			JobID:      summary.JobID,
			ChunkIndex: int32(l.ChunkIndex),
			Lost:       true,
			Message:    l.Message,
			ExportedAt: at,
		})
	}
	return out
}
