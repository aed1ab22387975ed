package loader

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Canonical Petrinex column names.
const (
	ColProductionMonth    = "ProductionMonth"
	ColActivityID         = "ActivityID"
	ColProductID          = "ProductID"
	ColFromToIDType       = "FromToIDType"
	ColFromToIDIdentifier = "FromToIDIdentifier"
	ColVolume             = "Volume"
)

// ProductionColumns are the Petrinex columns the pipeline keeps.
var ProductionColumns = []string{
	ColProductionMonth,
	ColActivityID,
	ColProductID,
	ColFromToIDType,
	ColFromToIDIdentifier,
	ColVolume,
}

// ProductionNullValues are read as null by the structured parse.
var ProductionNullValues = []string{"", "NA", "N/A", "NULL", "None", "***", "---"}

// productionSentinels are read as null by the lenient fallback parse.
var productionSentinels = []string{"***", "---", ""}

// LoadProduction reads a Petrinex volumetric CSV. Each encoding of
// ProductionEncodings is tried with a strict parse first; when none succeeds
// a lenient row-by-row parse is tried with each encoding in the same order.
func (l *Loader) LoadProduction(ctx context.Context, path string) (*table.Table, error) {
	ctx, span := tracing.StartSpan(ctx, "loader.Loader.LoadProduction")
	defer span.End()

	source := models.SourceProduction
	log := l.logger.WithContext(ctx).WithField("source", source.String())
	log.Infof("Loading Petrinex data from %s", path)

	for _, name := range ProductionEncodings {
		log.Debugf("Trying to load with encoding: %s", name)
		t, err := l.parseProduction(path, name)
		if err != nil {
			l.diag.Warn(ctx, diagnostics.Event{
				Stage:   stage,
				Kind:    diagnostics.EncodingFailure,
				Message: fmt.Sprintf("Failed to load with encoding %s: %v", name, err),
				Fields:  map[string]any{"source": source.String(), "encoding": name},
			})
			continue
		}
		log.WithField("encoding", name).Infof("Loaded Petrinex data with %s encoding", name)
		l.loaded(ctx, source, path, t)
		return t, nil
	}

	for _, name := range ProductionEncodings {
		log.Debugf("Trying lenient parse with encoding: %s", name)
		t, err := l.parseProductionLenient(ctx, path, name)
		if err != nil {
			l.diag.Warn(ctx, diagnostics.Event{
				Stage:   stage,
				Kind:    diagnostics.EncodingFailure,
				Message: fmt.Sprintf("Failed lenient load with encoding %s: %v", name, err),
				Fields:  map[string]any{"source": source.String(), "encoding": name, "lenient": true},
			})
			continue
		}
		log.WithField("encoding", name).Infof("Loaded Petrinex data with lenient parse and %s encoding", name)
		l.loaded(ctx, source, path, t)
		return t, nil
	}

	return nil, ferrors.NewPipelineError(ferrors.EncodingFailure, "unable to read Petrinex file with any encoding").
		AddStage(stage).AddSource(source.String())
}

// parseProduction is the strict attempt: every row must match the header and
// every kept column must be present.
func (l *Loader) parseProduction(path, encodingName string) (*table.Table, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, records, err := readRecords(enc.reader(f), csvFormat{comma: ',', header: true})
	if err != nil {
		return nil, err
	}
	if err := enc.validate(header, records); err != nil {
		return nil, err
	}

	raw, err := table.FromRecords(header, records, table.ReadOptions{
		NullValues: ProductionNullValues,
		Text:       []string{"Hours", ColProductionMonth, ColFromToIDIdentifier, ColActivityID, ColProductID, ColFromToIDType},
		Infer:      true,
	})
	if err != nil {
		return nil, err
	}

	out, missing, err := narrow(raw, ProductionColumns, nil)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, ferrors.NewPipelineError(ferrors.MissingColumn, "columns missing from Petrinex data").AddColumns(missing...)
	}
	return out, nil
}

// parseProductionLenient tolerates ragged rows and bad quoting. Cells are
// read as text, sentinels become null and each column is cast to a number
// when all of its values parse.
func (l *Loader) parseProductionLenient(ctx context.Context, path, encodingName string) (*table.Table, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, records, err := readRecords(enc.reader(f), csvFormat{comma: ',', header: true, lazy: true, fieldsPer: -1})
	if err != nil {
		return nil, err
	}
	if err := enc.validate(header, records); err != nil {
		return nil, err
	}

	ragged := 0
	for i, rec := range records {
		if len(rec) == len(header) {
			continue
		}
		ragged++
		fixed := make([]string, len(header))
		copy(fixed, rec)
		records[i] = fixed
	}
	if ragged > 0 {
		l.diag.Warn(ctx, diagnostics.Event{
			Stage:   stage,
			Kind:    diagnostics.Degraded,
			Message: fmt.Sprintf("%d Petrinex rows did not match the header width and were padded or truncated", ragged),
			Count:   ragged,
			Fields:  map[string]any{"encoding": encodingName},
		})
	}

	raw, err := table.FromRecords(header, records, table.ReadOptions{
		NullValues: productionSentinels,
		Infer:      true,
	})
	if err != nil {
		return nil, err
	}

	// Keep the canonical subset when it exists under any casing.
	mapping, missing := raw.Resolve(ProductionColumns...)
	if len(missing) > 0 {
		l.diag.Warn(ctx, diagnostics.Event{
			Stage:   stage,
			Kind:    diagnostics.MissingColumn,
			Message: "Petrinex columns missing after lenient parse, keeping every column",
			Fields:  map[string]any{"missing": missing},
		})
		return raw, nil
	}
	actual := ectolinq.Map(ProductionColumns, func(name string) string {
		return mapping[name]
	})
	selected, err := raw.Select(actual...)
	if err != nil {
		return nil, err
	}
	canonical := make(map[string]string, len(mapping))
	for want, got := range mapping {
		canonical[got] = want
	}
	return selected.Rename(canonical)
}
