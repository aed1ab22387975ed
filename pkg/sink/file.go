// Package sink writes pipeline tables and reports to local files and,
// optionally, uploads them to object storage.
package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const sinkName = "file"

// FileSink writes tables as parquet or CSV, chosen by file extension, and
// reports as indented JSON. Files are written to a temporary sibling and
// renamed, so readers never see a partial file.
type FileSink struct {
	logger ectologger.Logger
}

// NewFileSink creates a new file sink
func NewFileSink(logger ectologger.Logger) *FileSink {
	return &FileSink{
		logger: logger,
	}
}

// WriteTable writes t to path. The extension selects the format: .parquet
// or .csv.
func (s *FileSink) WriteTable(ctx context.Context, t *table.Table, path string) error {
	ctx, span := tracing.StartSpan(ctx, "sink.FileSink.WriteTable")
	defer span.End()

	var encode func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		encode = func(w io.Writer) error { return writeParquet(w, t) }
	case ".csv":
		encode = func(w io.Writer) error { return writeCSV(w, t) }
	default:
		return fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}

	if err := s.write(path, encode); err != nil {
		metrics.SinkWritesTotal.WithLabelValues(sinkName, "failure").Inc()
		s.logger.WithContext(ctx).WithError(err).WithField("path", path).Errorf("Failed to write %s", filepath.Base(path))
		return err
	}

	metrics.SinkWritesTotal.WithLabelValues(sinkName, "success").Inc()
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"path":    path,
		"rows":    t.NumRows(),
		"columns": t.NumCols(),
	}).Infof("Saved %s", filepath.Base(path))
	return nil
}

// WriteReport writes v to path as indented JSON.
func (s *FileSink) WriteReport(ctx context.Context, v any, path string) error {
	err := s.write(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
	if err != nil {
		metrics.SinkWritesTotal.WithLabelValues(sinkName, "failure").Inc()
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}

	metrics.SinkWritesTotal.WithLabelValues(sinkName, "success").Inc()
	s.logger.WithContext(ctx).WithField("path", path).Infof("Saved %s", filepath.Base(path))
	return nil
}

// WriteStaging writes t as <dir>/<stem>.parquet and <dir>/<stem>.csv.
// Failures are logged and returned as a slice; staging copies never stop
// a run.
func (s *FileSink) WriteStaging(ctx context.Context, t *table.Table, dir, stem string) []error {
	var errs []error
	for _, ext := range []string{".parquet", ".csv"} {
		path := filepath.Join(dir, stem+ext)
		if err := s.WriteTable(ctx, t, path); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warnf("Staging copy %s skipped", filepath.Base(path))
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *FileSink) write(path string, encode func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeCSV(w io.Writer, t *table.Table) error {
	header, rows := t.Records()
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}
