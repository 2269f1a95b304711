// Package partitioner splits a source file into bounded chunks persisted in chunk storage.
package partitioner

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

const (
	moduleName     = "splitter"
	csvContentType = "text/csv"
)

// Splitter turns a source file into chunks.
type Splitter interface {
	Split(ctx context.Context, jobID, source string, rowsPerTask int) ([]model.Chunk, error)
}

// CSVSplitter writes every chunk as a standalone CSV object (header line plus rows)
// under "<job-id>/<source-base>_batch_<n>.csv".
type CSVSplitter struct {
	store  storage.StorageConnection
	bucket string
}

var _ Splitter = (*CSVSplitter)(nil)

// NewCSVSplitter creates a splitter writing to the default bucket of store.
func NewCSVSplitter(store storage.StorageConnection) *CSVSplitter {
	return &CSVSplitter{store: store}
}

// Split reads source (a CSV file, or a ZIP archive holding one) and persists it as chunks
// of at most rowsPerTask rows, in source order. A header-only source yields no chunks.
// On failure every chunk already written is removed.
func (s *CSVSplitter) Split(ctx context.Context, jobID, source string, rowsPerTask int) (chunks []model.Chunk, err error) {
	if rowsPerTask <= 0 {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("rows_per_task must be positive, got %d", rowsPerTask), nil, false, false)
	}
	if jobID == "" {
		return nil, exception.NewBatchError(moduleName, "job ID must not be empty", nil, false, false)
	}

	in, name, err := openSource(source)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	defer func() {
		if err != nil {
			s.discard(chunks)
			chunks = nil
		}
	}()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, exception.NewMalformedInputError(moduleName, fmt.Sprintf("source '%s' is empty", source), nil)
	}
	if err != nil {
		return nil, exception.NewMalformedInputError(moduleName, fmt.Sprintf("failed to read header of '%s'", source), err)
	}
	if _, missing := model.MapHeader(header); len(missing) > 0 {
		return nil, exception.NewMalformedInputError(moduleName, fmt.Sprintf("source '%s' lacks required columns %v", source, missing), nil)
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	w := newChunkWriter(header)
	for {
		record, rerr := reader.Read()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return chunks, exception.NewMalformedInputError(moduleName, fmt.Sprintf("failed to parse '%s'", source), rerr)
		}
		if err := w.add(record); err != nil {
			return chunks, exception.NewBatchError(moduleName, "failed to buffer chunk row", err, false, false)
		}
		if w.rows == rowsPerTask {
			chunk, err := s.flush(ctx, jobID, base, len(chunks), w)
			if err != nil {
				return chunks, err
			}
			chunks = append(chunks, chunk)
			w = newChunkWriter(header)
		}
	}
	if w.rows > 0 {
		chunk, err := s.flush(ctx, jobID, base, len(chunks), w)
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}

	logger.Infof("Split '%s' into %d chunk(s) of at most %d rows (job %s).", source, len(chunks), rowsPerTask, jobID)
	return chunks, nil
}

func (s *CSVSplitter) flush(ctx context.Context, jobID, base string, index int, w *chunkWriter) (model.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return model.Chunk{}, err
	}
	data, err := w.bytes()
	if err != nil {
		return model.Chunk{}, exception.NewBatchError(moduleName, "failed to encode chunk", err, false, false)
	}
	key := ChunkKey(jobID, base, index)
	if err := s.store.Upload(ctx, s.bucket, key, bytes.NewReader(data), csvContentType); err != nil {
		return model.Chunk{}, exception.NewBatchError(moduleName, fmt.Sprintf("failed to write chunk '%s'", key), err, false, false)
	}
	logger.Debugf("Wrote chunk %d (%d rows) to '%s'.", index, w.rows, key)
	return model.Chunk{JobID: jobID, Index: index, Key: key, Header: w.header, Rows: w.rows}, nil
}

// discard removes written chunks. Cleanup failures are logged only.
func (s *CSVSplitter) discard(chunks []model.Chunk) {
	var result *multierror.Error
	for _, c := range chunks {
		if err := s.store.DeleteObject(context.Background(), s.bucket, c.Key); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Warnf("Failed to remove chunks of an aborted split: %v", err)
	}
}

// ChunkKey names the object of chunk index of a job.
func ChunkKey(jobID, base string, index int) string {
	return fmt.Sprintf("%s/%s_batch_%d.csv", jobID, base, index)
}

type chunkWriter struct {
	header []string
	buf    bytes.Buffer
	csv    *csv.Writer
	rows   int
}

func newChunkWriter(header []string) *chunkWriter {
	w := &chunkWriter{header: header}
	w.csv = csv.NewWriter(&w.buf)
	_ = w.csv.Write(header)
	return w
}

func (w *chunkWriter) add(record []string) error {
	w.rows++
	return w.csv.Write(record)
}

func (w *chunkWriter) bytes() ([]byte, error) {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// openSource opens a CSV file, or the first .csv entry of a ZIP archive.
// It returns the reader and the name the chunk keys derive from.
func openSource(source string) (io.ReadCloser, string, error) {
	if !strings.EqualFold(filepath.Ext(source), ".zip") {
		f, err := os.Open(source)
		if err != nil {
			return nil, "", exception.NewMalformedInputError(moduleName, fmt.Sprintf("failed to open source '%s'", source), err)
		}
		return f, source, nil
	}

	zr, err := zip.OpenReader(source)
	if err != nil {
		return nil, "", exception.NewMalformedInputError(moduleName, fmt.Sprintf("failed to open archive '%s'", source), err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, "", exception.NewMalformedInputError(moduleName, fmt.Sprintf("failed to open '%s' in '%s'", f.Name, source), err)
		}
		return &zipEntry{ReadCloser: rc, archive: zr}, f.Name, nil
	}
	zr.Close()
	return nil, "", exception.NewMalformedInputError(moduleName, fmt.Sprintf("archive '%s' holds no .csv file", source), nil)
}

type zipEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntry) Close() error {
	return errors.Join(z.ReadCloser.Close(), z.archive.Close())
}
