// Package loader parses the raw ST1, ST37 and Petrinex files into typed
// tables narrowed to the columns the pipeline uses, under canonical names.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/table"
)

const stage = "load"

// sparseThreshold is the null share above which a kept column is reported.
const sparseThreshold = 50.0

// Loader reads the three source files.
type Loader struct {
	logger ectologger.Logger
	diag   diagnostics.Sink
}

// NewLoader creates a new loader
func NewLoader(logger ectologger.Logger, diag diagnostics.Sink) *Loader {
	return &Loader{
		logger: logger,
		diag:   diag,
	}
}

// Load dispatches to the loader of the given source.
func (l *Loader) Load(ctx context.Context, source models.Source, path string) (*table.Table, error) {
	switch source {
	case models.SourceLicences:
		return l.LoadLicences(ctx, path)
	case models.SourceStatuses:
		return l.LoadStatuses(ctx, path)
	case models.SourceProduction:
		return l.LoadProduction(ctx, path)
	}
	return nil, fmt.Errorf("unknown source %q", source)
}

type csvFormat struct {
	comma     rune
	header    bool
	lazy      bool
	fieldsPer int
}

// readRecords reads delimited text. With header set the first record is
// returned separately.
func readRecords(r io.Reader, format csvFormat) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = format.comma
	reader.LazyQuotes = format.lazy
	reader.FieldsPerRecord = format.fieldsPer

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if !format.header {
		return nil, records, nil
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("file has no header row")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, records[1:], nil
}

func openSource(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// narrow checks required columns, keeps them in order and renames them.
func narrow(t *table.Table, keep []string, rename map[string]string) (*table.Table, []string, error) {
	if missing := t.Missing(keep...); len(missing) > 0 {
		return nil, missing, nil
	}
	selected, err := t.Select(keep...)
	if err != nil {
		return nil, nil, err
	}
	renamed, err := selected.Rename(rename)
	if err != nil {
		return nil, nil, err
	}
	return renamed, nil, nil
}

// reportSparse raises a warning for every column that is mostly null.
func (l *Loader) reportSparse(ctx context.Context, source models.Source, t *table.Table, columns []string) {
	if t.NumRows() == 0 {
		return
	}
	for _, name := range columns {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		pct := float64(col.NullCount()) / float64(t.NumRows()) * 100
		if pct > sparseThreshold {
			l.diag.Warn(ctx, diagnostics.Event{
				Stage:   stage,
				Kind:    diagnostics.SparseColumn,
				Message: fmt.Sprintf("Column %s has %.2f%% null values", name, pct),
				Fields:  map[string]any{"source": source.String(), "column": name, "null_pct": pct},
			})
		}
	}
}

func (l *Loader) loaded(ctx context.Context, source models.Source, path string, t *table.Table) {
	metrics.RowsLoaded.WithLabelValues(source.String()).Set(float64(t.NumRows()))
	l.logger.WithContext(ctx).WithFields(map[string]any{
		"source":  source.String(),
		"path":    path,
		"rows":    t.NumRows(),
		"columns": t.NumCols(),
	}).Infof("Successfully loaded %s data: %d rows, %d columns", source, t.NumRows(), t.NumCols())
}
